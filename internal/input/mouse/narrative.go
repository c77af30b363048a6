package mouse

import (
	"fmt"
	"time"

	"github.com/dshills/condriver/internal/geom"
	"github.com/dshills/condriver/internal/input/key"
)

// ButtonState is one transition of one button.
type ButtonState struct {
	Button    int
	At        time.Time
	Pressed   bool
	Position  geom.Point
	Modifiers key.Modifier
}

func (s ButtonState) String() string {
	verb := "released"
	if s.Pressed {
		verb = "pressed"
	}
	return fmt.Sprintf("button%d %s at %v", s.Button, verb, s.Position)
}

// ButtonNarrative is the ordered history of one button since it was first
// pressed from idle. While a press is open the history has 2*clicks+1 states.
type ButtonNarrative struct {
	Button         int
	States         []ButtonState
	NumberOfClicks int

	now func() time.Time
}

func newNarrative(button int, pos geom.Point, mods key.Modifier, now func() time.Time) *ButtonNarrative {
	n := &ButtonNarrative{Button: button, now: now}
	n.States = append(n.States, ButtonState{
		Button:    button,
		At:        now(),
		Pressed:   true,
		Position:  pos,
		Modifiers: mods,
	})
	return n
}

// IsPressed returns true if the latest state is a press.
func (n *ButtonNarrative) IsPressed() bool {
	return len(n.States) > 0 && n.States[len(n.States)-1].Pressed
}

// Last returns the most recent state.
func (n *ButtonNarrative) Last() ButtonState {
	return n.States[len(n.States)-1]
}

// process applies a sample. A release after a press completes a click; a
// repeated press or release is ignored.
func (n *ButtonNarrative) process(pos geom.Point, pressed bool, mods key.Modifier) {
	if pressed == n.IsPressed() {
		return
	}
	n.States = append(n.States, ButtonState{
		Button:    n.Button,
		At:        n.now(),
		Pressed:   pressed,
		Position:  pos,
		Modifiers: mods,
	})
	if !pressed {
		n.NumberOfClicks++
	}
}
