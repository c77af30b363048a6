package cellscreen

import (
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/pkg/errors"

	"github.com/dshills/condriver/internal/logging"
	"github.com/dshills/condriver/internal/metrics"
	"github.com/dshills/condriver/internal/output"
)

// Config configures a Console.
type Config struct {
	// Mouse enables mouse reporting.
	Mouse bool

	ColorMode output.ColorMode
	Logger    *logging.Logger
	Metrics   *metrics.Metrics
}

// Console owns a tcell screen shared by one Source and one Output. The
// screen is initialized by whichever of them is opened first and finalized
// when the Output is closed.
type Console struct {
	screen tcell.Screen
	cfg    Config
	log    *logging.Logger

	initOnce sync.Once
	initErr  error
}

// New wraps an uninitialized screen.
func New(screen tcell.Screen, cfg Config) *Console {
	return &Console{
		screen: screen,
		cfg:    cfg,
		log:    logging.OrDefault(cfg.Logger).WithComponent("cellscreen"),
	}
}

// NewTerminal creates a console on the process terminal.
func NewTerminal(cfg Config) (*Console, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, errors.Wrap(err, "creating screen")
	}
	return New(screen, cfg), nil
}

func (c *Console) init() error {
	c.initOnce.Do(func() {
		if err := c.screen.Init(); err != nil {
			c.initErr = errors.Wrap(err, "initializing screen")
			return
		}
		if c.cfg.Mouse {
			c.screen.EnableMouse()
		}
		c.screen.Clear()
		c.log.Debug("screen initialized, %d colors", c.screen.Colors())
	})
	return c.initErr
}

// OpenSource creates the input source. Call it on the reader goroutine.
func (c *Console) OpenSource() (*Source, error) {
	if err := c.init(); err != nil {
		return nil, err
	}
	return newSource(c.screen, c.log), nil
}

// OpenOutput creates the output. Call it on the main loop goroutine.
func (c *Console) OpenOutput() (*Output, error) {
	if err := c.init(); err != nil {
		return nil, err
	}
	return newOutput(c.screen, c.cfg, c.log), nil
}
