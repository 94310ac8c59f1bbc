package loader

import (
	"strings"

	"github.com/google/uuid"

	"github.com/fzeeshan/graphml-canvas/internal/namespace"
)

// Task is an ordered batch of resource identifiers to fetch for one
// namespace. Tasks are processed as a unit: no identifier of a later task
// is dispatched before this task's list is exhausted.
type Task struct {
	// ID uniquely identifies the task in logs and events.
	ID string

	// Target is the namespace fetched implementations are registered
	// into. May be nil for fetch-only tasks.
	Target *namespace.Namespace

	// BasePath is the prefix resolved once at task creation, locating
	// resources relative to the caller's own location.
	BasePath string

	// pending holds the remaining identifiers, front first. Only the
	// drain goroutine mutates it.
	pending []string
}

func newTask(target *namespace.Namespace, basePath string, identifiers []string) *Task {
	pending := make([]string, len(identifiers))
	copy(pending, identifiers)
	return &Task{
		ID:       uuid.NewString(),
		Target:   target,
		BasePath: basePath,
		pending:  pending,
	}
}

// Resolve joins an identifier onto the task's base path. Plain string
// concatenation: "." and ".." segments are deliberately not normalized.
func (t *Task) Resolve(identifier string) string {
	return t.BasePath + identifier
}

// Remaining returns how many identifiers are still pending.
func (t *Task) Remaining() int {
	return len(t.pending)
}

// DeriveName computes the capability name a fetched resource registers
// under: the final path segment of its identifier with the extension
// stripped ("classes/ShapeNode.js" yields "ShapeNode").
func DeriveName(identifier string) string {
	name := identifier
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if dot := strings.LastIndex(name, "."); dot >= 0 {
		name = name[:dot]
	}
	return name
}
