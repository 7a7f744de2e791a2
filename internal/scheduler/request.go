package scheduler

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects how Submit waits on a job.
type Mode int

const (
	// Async returns as soon as the scheduler accepts the job.
	Async Mode = iota
	// Sync blocks until the job finishes and captures its output.
	Sync
)

func (m Mode) String() string {
	switch m {
	case Async:
		return "async"
	case Sync:
		return "sync"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "async" or "sync".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "async":
		return Async, nil
	case "sync":
		return Sync, nil
	default:
		return Async, fmt.Errorf("invalid mode %q: must be async or sync", s)
	}
}

// Resources is the reservation requested from the scheduler.
type Resources struct {
	// Memory is passed through verbatim (e.g. "20GB"). Empty omits the flag.
	Memory string
	// Interactive allocates a pseudo-terminal for the job.
	Interactive bool
}

// Request describes one submission. Requests are never persisted.
type Request struct {
	JobName    string
	Resources  Resources
	Invocation string
	Mode       Mode
}

// Validate checks the fields the command line depends on.
func (r Request) Validate() error {
	if r.JobName == "" {
		return fmt.Errorf("request: job name is empty")
	}
	if strings.ContainsAny(r.JobName, " \t\n'\"") {
		return fmt.Errorf("request: job name %q contains whitespace or quotes", r.JobName)
	}
	if r.Invocation == "" {
		return fmt.Errorf("request: invocation is empty")
	}
	return nil
}

// Handle is returned for every accepted submission.
type Handle struct {
	ID          string
	JobName     string
	Command     string
	Mode        Mode
	SubmittedAt time.Time

	// Set in Sync mode only.
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// CommandBuilder renders requests into shell commands.
type CommandBuilder struct {
	// Program is the scheduler front-end, normally "srun".
	Program string
	// Interpreter runs the embedded statements, normally "python3".
	Interpreter string
}

// Build renders r. The invocation is wrapped in single quotes; any single
// quote inside it is escaped for the shell.
func (b CommandBuilder) Build(r Request) string {
	var sb strings.Builder
	sb.WriteString(b.Program)
	if r.Resources.Interactive {
		sb.WriteString(" --pty")
	}
	fmt.Fprintf(&sb, " --job-name=%s", r.JobName)
	if r.Resources.Memory != "" {
		fmt.Fprintf(&sb, " --mem=%s", r.Resources.Memory)
	}
	fmt.Fprintf(&sb, " %s -c %s", b.Interpreter, shellQuote(r.Invocation))
	return sb.String()
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
