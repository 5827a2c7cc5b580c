// Package runner supervises the process lifecycle: banner, start hooks, a
// blocking run phase, and a bounded drain on shutdown.
package runner

import (
	"bytes"
	"os"

	"github.com/dimiro1/banner"
)

// State tracks where the supervised process is in its lifecycle.
type State int

const (
	StateNew State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateRunning:
		return "RUNNING"
	case StateDraining:
		return "DRAINING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Hooks are optional lifecycle callbacks.
type Hooks struct {
	OnStart func()
	OnStop  func()
}

// Drainer lets the engine finish in-flight work before shutdown. The
// conversation engine implements this by cancelling its turn loop, which
// tears down any active capture session.
type Drainer interface {
	Drain() error
}

const Version = "dev"

func PrintBanner() {
	tpl := "{{ .Title \"VOKAL\" \"\" 0 }}\nVersion: " + Version + "\n"
	banner.Init(os.Stdout, true, true, bytes.NewBufferString(tpl))
}
