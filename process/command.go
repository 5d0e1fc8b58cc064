package process

import (
	"io"
	"time"
)

// Command describes a subprocess.
type Command struct {
	// Binary is an executable path or a name looked up in PATH.
	Binary string
	Args   []string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env holds extra KEY=value pairs appended to the parent environment.
	Env   []string
	Stdin io.Reader
	// GracePeriod is the delay between SIGTERM and SIGKILL once ctx is
	// cancelled. Defaults to DefaultGracePeriod.
	GracePeriod time.Duration
}

// DefaultGracePeriod applies when Command.GracePeriod is zero.
const DefaultGracePeriod = 5 * time.Second
