package console

import (
	"fmt"

	"github.com/dshills/condriver/internal/geom"
	"github.com/dshills/condriver/internal/input/key"
	"github.com/dshills/condriver/internal/input/mouse"
)

// RecordKind identifies the variant held by a Record.
type RecordKind uint8

const (
	RecordKey RecordKind = iota + 1
	RecordMouse
	RecordResize
)

func (k RecordKind) String() string {
	switch k {
	case RecordKey:
		return "key"
	case RecordMouse:
		return "mouse"
	case RecordResize:
		return "resize"
	default:
		return fmt.Sprintf("RecordKind(%d)", k)
	}
}

// Record is a pre-decoded input record from a record-based platform.
// Records are values; the consumer gets its own copy.
type Record struct {
	Kind RecordKind

	// Key is set for RecordKey.
	Key key.Event

	// Mouse is set for RecordMouse. Its flags carry the pressed state of
	// every button held at the time of the sample.
	Mouse mouse.EventArgs

	// Size is set for RecordResize.
	Size geom.Size
}

// KeyRecord creates a key record.
func KeyRecord(ev key.Event) Record {
	return Record{Kind: RecordKey, Key: ev}
}

// MouseRecord creates a mouse record.
func MouseRecord(pos geom.Point, flags mouse.Flags) Record {
	return Record{Kind: RecordMouse, Mouse: mouse.EventArgs{Position: pos, Flags: flags}}
}

// ResizeRecord creates a resize record.
func ResizeRecord(size geom.Size) Record {
	return Record{Kind: RecordResize, Size: size}
}

func (r Record) String() string {
	switch r.Kind {
	case RecordKey:
		return "key " + r.Key.String()
	case RecordMouse:
		return fmt.Sprintf("mouse %v %v", r.Mouse.Position, r.Mouse.Flags)
	case RecordResize:
		return fmt.Sprintf("resize %dx%d", r.Size.Width, r.Size.Height)
	default:
		return r.Kind.String()
	}
}
