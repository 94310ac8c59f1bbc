// Package script materializes fetched JavaScript resources into capability
// implementations. A resource is expected to define a function under its
// derived name (a resource ending in ShapeNode.js defines ShapeNode); the
// contract is lookup by declared name, not inspection of ambient globals.
package script

import (
	"context"
	"fmt"
	"sync"

	"github.com/dop251/goja"

	"github.com/fzeeshan/graphml-canvas/internal/log"
	"github.com/fzeeshan/graphml-canvas/internal/namespace"
)

// Engine compiles and evaluates resource scripts. It implements
// loader.Materializer.
type Engine struct{}

// NewEngine creates a script engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Materialize evaluates src in a fresh runtime and looks up the global
// value declared under name. The value must be callable; anything else
// (absent, null, non-function) yields (nil, false) so the loader skips the
// registration silently.
func (e *Engine) Materialize(name string, src []byte) (namespace.Capability, bool) {
	if name == "" {
		return nil, false
	}

	program, err := goja.Compile(name, string(src), false)
	if err != nil {
		log.ErrorErr(log.CatScript, "resource script failed to compile", err, "name", name)
		return nil, false
	}

	vm := goja.New()
	if _, err := vm.RunProgram(program); err != nil {
		log.ErrorErr(log.CatScript, "resource script failed to evaluate", err, "name", name)
		return nil, false
	}

	value := vm.Get(name)
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, false
	}

	fn, ok := goja.AssertFunction(value)
	if !ok {
		log.Warn(log.CatScript, "declared value is not callable", "name", name)
		return nil, false
	}

	return &capability{name: name, vm: vm, fn: fn}, true
}

// capability adapts a script function to the namespace.Capability
// interface. The runtime is retained so the function keeps its closure
// state across Setup invocations; goja runtimes are not goroutine-safe, so
// calls are serialized.
type capability struct {
	mu   sync.Mutex
	name string
	vm   *goja.Runtime
	fn   goja.Callable
}

// Name returns the declared capability name.
func (c *capability) Name() string { return c.name }

// Setup invokes the script function with (canvas, graph, data, attrs).
func (c *capability) Setup(ctx context.Context, canvas, graph any, data []byte, attrs map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := c.fn(goja.Undefined(),
		c.vm.ToValue(canvas),
		c.vm.ToValue(graph),
		c.vm.ToValue(string(data)),
		c.vm.ToValue(attrs),
	)
	if err != nil {
		return fmt.Errorf("script capability %s: %w", c.name, err)
	}
	return nil
}
