package graph

import (
	"fmt"
	"strings"
)

// CyclicDependencyError reports a dependency cycle. Cycle starts and ends
// with the same tool.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic dependency: %s", strings.Join(e.Cycle, " -> "))
}

// ToolNotFoundError reports a requested tool that the configuration does
// not declare.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool %q not found in configuration", e.Name)
}
