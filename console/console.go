// Package console owns the board's serial channel: opened once at a fixed
// line setting, written for the rest of the program, never closed.
package console

import (
	"sync"

	"tinygo.org/x/drivers"

	"tsim7670g-go/errcode"
	"tsim7670g-go/types"
)

// Port is the hardware side of the channel. machine.Serial satisfies
// drivers.UART; platform adapters supply Configure.
type Port interface {
	drivers.UART
	Configure(cfg types.SerialConfig) error
}

// Channel is the single handle through which all console output flows.
type Channel struct {
	mu   sync.Mutex
	name string
	port Port
	open bool
}

func New(name string, port Port) *Channel {
	return &Channel{name: name, port: port}
}

// Open applies cfg to the port. It succeeds at most once; later calls
// return AlreadyOpen without touching the port. A Configure error is
// returned but the channel is still considered open, so output goes
// wherever the platform leaves the port.
func (c *Channel) Open(cfg types.SerialConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open {
		return &errcode.E{C: errcode.AlreadyOpen, Op: "console.open", Msg: c.name}
	}
	c.open = true
	if err := c.port.Configure(cfg); err != nil {
		return errcode.Wrap(errcode.PortOpen, "console.open", err)
	}
	return nil
}

// Write sends p unchanged.
func (c *Channel) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return 0, errcode.NotOpen
	}
	return c.port.Write(p)
}

// Print writes s with no terminator.
func (c *Channel) Print(s string) error {
	_, err := c.Write([]byte(s))
	return err
}

// Println writes s followed by '\n' as a single write.
func (c *Channel) Println(s string) error {
	buf := make([]byte, 0, len(s)+1)
	buf = append(buf, s...)
	buf = append(buf, '\n')
	_, err := c.Write(buf)
	return err
}

func (c *Channel) WriteByte(b byte) error {
	_, err := c.Write([]byte{b})
	return err
}
