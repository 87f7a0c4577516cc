// Package graph orders installers by their dependencies and installs them
// dependency-first.
package graph

import (
	"github.com/pirakansa/kitup/internal/installers"
	"github.com/pirakansa/kitup/pkg/manifest"
)

// Vertex is one tool in the graph. Name, Provider and Dependencies are
// taken from the installer.
type Vertex struct {
	Name         string
	Provider     manifest.Provider
	Dependencies []string
	Installer    installers.Installer
}

func NewVertex(inst installers.Installer) Vertex {
	return Vertex{
		Name:         inst.Name(),
		Provider:     inst.Provider(),
		Dependencies: inst.Dependencies(),
		Installer:    inst,
	}
}

// Edge points from a vertex to one of its dependencies.
type Edge struct {
	From int
	To   int
}

// InstallerGraph holds vertices in insertion order and the edges between
// them. Vertices are addressed by index.
type InstallerGraph struct {
	vertices  []Vertex
	edges     []Edge
	observers []Observer
}

func New() *InstallerGraph {
	return &InstallerGraph{}
}

// AddVertex appends v and returns its index.
func (g *InstallerGraph) AddVertex(v Vertex) int {
	g.vertices = append(g.vertices, v)
	return len(g.vertices) - 1
}

func (g *InstallerGraph) AddEdge(from, to int) {
	g.edges = append(g.edges, Edge{From: from, To: to})
}

func (g *InstallerGraph) Vertices() []Vertex {
	return append([]Vertex(nil), g.vertices...)
}

func (g *InstallerGraph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

func (g *InstallerGraph) Len() int {
	return len(g.vertices)
}

// Installers returns the installer of every vertex in insertion order.
func (g *InstallerGraph) Installers() []installers.Installer {
	out := make([]installers.Installer, len(g.vertices))
	for i, v := range g.vertices {
		out[i] = v.Installer
	}
	return out
}

// Index returns the first vertex named name.
func (g *InstallerGraph) Index(name string) (int, bool) {
	for i, v := range g.vertices {
		if v.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Wire replaces the edges with one edge per resolvable dependency name.
// A dependency resolves to the first vertex with that name; names that
// match no vertex are dropped.
func (g *InstallerGraph) Wire() {
	g.edges = nil
	for i, v := range g.vertices {
		for _, dep := range v.Dependencies {
			if j, ok := g.Index(dep); ok {
				g.AddEdge(i, j)
			}
		}
	}
}

func (g *InstallerGraph) dependencies(i int) []int {
	var out []int
	for _, e := range g.edges {
		if e.From == i {
			out = append(out, e.To)
		}
	}
	return out
}
