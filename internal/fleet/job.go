// Package fleet applies a configuration to the local host or to many
// remote hosts, one independent task per host.
package fleet

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pirakansa/kitup/internal/executor"
	"github.com/pirakansa/kitup/internal/graph"
	"github.com/pirakansa/kitup/internal/logutil"
	"github.com/pirakansa/kitup/internal/osinfo"
	"github.com/pirakansa/kitup/pkg/manifest"
)

// Job is a configuration to install, optionally narrowed to named tools.
type Job struct {
	Config *manifest.Configuration
	Tools  []string
}

// ToolOutcome is what happened to one vertex.
type ToolOutcome struct {
	Name     string
	Provider manifest.Provider
	Outcome  graph.Outcome
	Elapsed  time.Duration
}

// Report is the result of a Job on one host. Err is nil when every
// visited tool was installed or skipped.
type Report struct {
	Host     string
	Tools    []ToolOutcome
	Duration time.Duration
	Err      error
}

// Count returns how many tools ended with outcome.
func (r Report) Count(outcome graph.Outcome) int {
	n := 0
	for _, t := range r.Tools {
		if t.Outcome == outcome {
			n++
		}
	}
	return n
}

type collector struct {
	mu    sync.Mutex
	tools []ToolOutcome
}

func (c *collector) Observe(v graph.Vertex, outcome graph.Outcome, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tools = append(c.tools, ToolOutcome{Name: v.Name, Provider: v.Provider, Outcome: outcome, Elapsed: elapsed})
}

// Build builds the install graph of the job for the target behind exec.
// The job's configuration is cloned first.
func (j Job) Build(ctx context.Context, exec executor.Executor, id osinfo.Identifier) (*graph.InstallerGraph, error) {
	g, _, err := graph.Build(ctx, j.Config.Clone(), exec, id)
	return g, err
}

// Plan returns the vertices the job would visit, dependencies first.
func (j Job) Plan(ctx context.Context, exec executor.Executor, id osinfo.Identifier) ([]graph.Vertex, error) {
	g, err := j.Build(ctx, exec, id)
	if err != nil {
		return nil, err
	}
	order, err := g.OrderNamed(j.Tools...)
	if err != nil {
		return nil, err
	}
	vertices := g.Vertices()
	out := make([]graph.Vertex, len(order))
	for i, idx := range order {
		out[i] = vertices[idx]
	}
	return out, nil
}

// Run installs the job on the target behind exec.
func (j Job) Run(ctx context.Context, exec executor.Executor, id osinfo.Identifier, observers ...graph.Observer) Report {
	start := time.Now()
	report := Report{Host: exec.Target().String()}
	logger := logutil.FromContext(ctx)

	g, err := j.Build(ctx, exec, id)
	if err != nil {
		report.Err = err
		report.Duration = time.Since(start)
		return report
	}
	c := &collector{}
	g.AddObserver(c)
	for _, o := range observers {
		g.AddObserver(o)
	}

	logger.Info("installing", zap.Int("vertices", g.Len()), zap.Strings("tools", j.Tools))
	if len(j.Tools) == 0 {
		err = g.InstallAll(ctx)
	} else {
		err = g.InstallNamed(ctx, j.Tools...)
	}
	report.Tools = c.tools
	report.Err = err
	report.Duration = time.Since(start)
	return report
}
