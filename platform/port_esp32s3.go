//go:build esp32s3

package platform

import (
	"machine"

	"tsim7670g-go/console"
	"tsim7670g-go/types"
)

// ConsoleName is the name the console channel reports in errors.
const ConsoleName = "uart0"

// devicePort adapts machine.Serial to console.Port.
type devicePort struct {
	s machine.Serialer
}

// Console returns the board's console port (USB-serial bridge on UART0).
func Console() console.Port { return &devicePort{s: machine.Serial} }

func (p *devicePort) Configure(cfg types.SerialConfig) error {
	return p.s.Configure(machine.UARTConfig{BaudRate: cfg.Baud})
}

func (p *devicePort) Write(b []byte) (int, error) { return p.s.Write(b) }

func (p *devicePort) Buffered() int { return p.s.Buffered() }

// Read drains whatever is buffered without blocking.
func (p *devicePort) Read(b []byte) (int, error) {
	n := 0
	for n < len(b) && p.s.Buffered() > 0 {
		c, err := p.s.ReadByte()
		if err != nil {
			return n, err
		}
		b[n] = c
		n++
	}
	return n, nil
}
