//go:build !esp32s3

package platform

import (
	"io"
	"os"

	"tsim7670g-go/console"
	"tsim7670g-go/types"
)

// ConsoleName is the name the console channel reports in errors.
const ConsoleName = "stdio"

// HostPort stands in for the board UART on a desktop: writes go to W,
// reads come from R, and line settings have no effect.
type HostPort struct {
	R io.Reader
	W io.Writer
}

func NewHostPort(r io.Reader, w io.Writer) *HostPort {
	return &HostPort{R: r, W: w}
}

// Console returns a port bound to the process's stdin/stdout.
func Console() console.Port { return NewHostPort(os.Stdin, os.Stdout) }

func (p *HostPort) Configure(types.SerialConfig) error { return nil }

func (p *HostPort) Write(b []byte) (int, error) { return p.W.Write(b) }

func (p *HostPort) Read(b []byte) (int, error) {
	if p.R == nil {
		return 0, io.EOF
	}
	return p.R.Read(b)
}

func (p *HostPort) Buffered() int { return 0 }
