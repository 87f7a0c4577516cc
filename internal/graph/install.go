package graph

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pirakansa/kitup/internal/installers"
	"github.com/pirakansa/kitup/internal/logutil"
)

type VisitState int

const (
	Unvisited VisitState = iota
	Visiting
	Visited
)

// Outcome is what happened to one vertex during an install.
type Outcome string

const (
	OutcomeInstalled Outcome = "installed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Observer is notified once per vertex the traversal reaches.
type Observer interface {
	Observe(v Vertex, outcome Outcome, elapsed time.Duration)
}

type ObserverFunc func(v Vertex, outcome Outcome, elapsed time.Duration)

func (f ObserverFunc) Observe(v Vertex, outcome Outcome, elapsed time.Duration) {
	f(v, outcome, elapsed)
}

func (g *InstallerGraph) AddObserver(o Observer) {
	g.observers = append(g.observers, o)
}

// NewState returns a visit state with every vertex unvisited.
func (g *InstallerGraph) NewState() []VisitState {
	return make([]VisitState, len(g.vertices))
}

// Install installs vertex index after its dependencies. Vertices already
// Visited in state are not installed again; reaching a Visiting vertex is
// a cycle.
func (g *InstallerGraph) Install(ctx context.Context, index int, state []VisitState) error {
	return g.visit(index, state, nil, func(i int) error {
		return g.installVertex(ctx, i)
	})
}

// InstallAll installs every vertex, dependencies first.
func (g *InstallerGraph) InstallAll(ctx context.Context) error {
	state := g.NewState()
	for i := range g.vertices {
		if err := g.Install(ctx, i, state); err != nil {
			return err
		}
	}
	return nil
}

// InstallNamed installs the named tools and their dependencies, sharing
// one visit state so a common dependency is installed once. Every name is
// resolved before anything is installed.
func (g *InstallerGraph) InstallNamed(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	indexes, err := g.resolve(names)
	if err != nil {
		return err
	}
	state := g.NewState()
	for _, i := range indexes {
		if err := g.Install(ctx, i, state); err != nil {
			return err
		}
	}
	return nil
}

// Order returns every vertex index in install order without installing.
func (g *InstallerGraph) Order() ([]int, error) {
	return g.OrderNamed()
}

// OrderNamed returns the install order of the named tools and their
// dependencies, or of every vertex when no names are given.
func (g *InstallerGraph) OrderNamed(names ...string) ([]int, error) {
	roots, err := g.resolve(names)
	if err != nil {
		return nil, err
	}
	state := g.NewState()
	var order []int
	for _, i := range roots {
		err := g.visit(i, state, nil, func(i int) error {
			order = append(order, i)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return order, nil
}

// resolve maps names to vertex indexes; no names means every vertex.
func (g *InstallerGraph) resolve(names []string) ([]int, error) {
	if len(names) == 0 {
		all := make([]int, len(g.vertices))
		for i := range all {
			all[i] = i
		}
		return all, nil
	}
	indexes := make([]int, 0, len(names))
	for _, name := range names {
		i, ok := g.Index(name)
		if !ok {
			return nil, &ToolNotFoundError{Name: name}
		}
		indexes = append(indexes, i)
	}
	return indexes, nil
}

// visit runs fn on index after all of its dependencies, depth first.
// path holds the vertices currently being visited.
func (g *InstallerGraph) visit(index int, state []VisitState, path []int, fn func(int) error) error {
	switch state[index] {
	case Visited:
		return nil
	case Visiting:
		return g.cycleError(path, index)
	}
	state[index] = Visiting
	path = append(path, index)
	for _, dep := range g.dependencies(index) {
		if err := g.visit(dep, state, path, fn); err != nil {
			return err
		}
	}
	if err := fn(index); err != nil {
		return err
	}
	state[index] = Visited
	return nil
}

func (g *InstallerGraph) cycleError(path []int, index int) error {
	start := 0
	for i, p := range path {
		if p == index {
			start = i
			break
		}
	}
	cycle := make([]string, 0, len(path)-start+1)
	for _, p := range path[start:] {
		cycle = append(cycle, g.vertices[p].Name)
	}
	cycle = append(cycle, g.vertices[index].Name)
	return &CyclicDependencyError{Cycle: cycle}
}

func (g *InstallerGraph) installVertex(ctx context.Context, index int) error {
	v := g.vertices[index]
	logger := logutil.FromContext(ctx).With(zap.String("tool", v.Name), zap.Stringer("provider", v.Provider))
	ctx = logutil.WithLogger(ctx, logger)
	start := time.Now()

	status, err := v.Installer.Status(ctx)
	if err != nil {
		g.notify(v, OutcomeFailed, time.Since(start))
		return err
	}
	if status == installers.StatusInstalled {
		logger.Info("already installed, skipping")
		g.notify(v, OutcomeSkipped, time.Since(start))
		return nil
	}

	if err := v.Installer.Install(ctx); err != nil {
		g.notify(v, OutcomeFailed, time.Since(start))
		return err
	}
	logger.Info("installed", zap.Duration("elapsed", time.Since(start)))
	g.notify(v, OutcomeInstalled, time.Since(start))
	return nil
}

func (g *InstallerGraph) notify(v Vertex, outcome Outcome, elapsed time.Duration) {
	for _, o := range g.observers {
		o.Observe(v, outcome, elapsed)
	}
}
