package shared

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/pirakansa/kitup/internal/executor"
)

var (
	headingColor = color.New(color.FgHiWhite, color.Bold)
	actionColor  = color.New(color.FgCyan)
	okColor      = color.New(color.FgGreen)
	skipColor    = color.New(color.FgHiBlack)
	failColor    = color.New(color.FgRed, color.Bold)
)

// Printer writes user-facing progress lines. It is safe for concurrent
// use by per-host installs.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) print(c *color.Color, host, format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if host != "" {
		fmt.Fprintf(p.w, "[%s] ", host)
	}
	c.Fprintf(p.w, format, args...)
	fmt.Fprintln(p.w)
}

func (p *Printer) Heading(format string, args ...any) {
	p.print(headingColor, "", format, args...)
}

func (p *Printer) Step(host, format string, args ...any) {
	p.print(actionColor, host, "-> "+format, args...)
}

func (p *Printer) Installed(host, tool, provider string, elapsed time.Duration) {
	p.print(okColor, host, "   %s (%s) installed in %s", tool, provider, elapsed.Round(time.Millisecond))
}

func (p *Printer) Skipped(host, tool string) {
	p.print(skipColor, host, "   %s already installed", tool)
}

func (p *Printer) ToolFailed(host, tool, provider string) {
	p.print(failColor, host, "   %s (%s) failed", tool, provider)
}

func (p *Printer) Warn(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, color.HiYellowString("[WARN] "+format, args...))
}

// Failed prints err and, for command failures, the command and its
// captured stderr.
func (p *Printer) Failed(host string, err error) {
	p.print(failColor, host, "x %v", err)

	var command, stderr string
	var local *executor.CommandError
	var remote *executor.RemoteExecError
	switch {
	case errors.As(err, &local):
		command, stderr = local.Command, local.Stderr
	case errors.As(err, &remote):
		command, stderr = remote.Command, remote.Stderr
	default:
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "    command: %s\n", command)
	for _, line := range strings.Split(strings.TrimSpace(stderr), "\n") {
		if line != "" {
			fmt.Fprintf(p.w, "    stderr: %s\n", line)
		}
	}
}

// Plural formats n with the singular or plural noun, e.g. "3 tools".
func Plural(n int, singular, plural string) string {
	return humanize.Plural(n, singular, plural)
}

// Ago formats a past RFC 3339 timestamp relative to now, or returns the
// input unchanged when it does not parse.
func Ago(stamp string) string {
	t, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return stamp
	}
	return humanize.Time(t)
}
