package namespace

import (
	"context"
	"reflect"
)

// Capability is a named behavior registered within a Namespace. The
// rendering host resolves capabilities by name and invokes Setup to
// materialize graph elements onto its drawing surface.
//
// The canvas and graph handles are opaque to this subsystem: the host
// supplies them and the capability implementation interprets them. The
// data argument is the original raw document content; attrs carries
// free-form options.
type Capability interface {
	Setup(ctx context.Context, canvas, graph any, data []byte, attrs map[string]any) error
}

// Namer is implemented by capabilities that declare their own name.
// SetCapability falls back to it when called with an empty name.
type Namer interface {
	Name() string
}

// CapabilityFunc adapts a plain function to the Capability interface.
type CapabilityFunc func(ctx context.Context, canvas, graph any, data []byte, attrs map[string]any) error

// Setup invokes the function.
func (f CapabilityFunc) Setup(ctx context.Context, canvas, graph any, data []byte, attrs map[string]any) error {
	return f(ctx, canvas, graph, data, attrs)
}

// isNilCapability reports whether impl is nil or an interface wrapping a
// typed nil pointer/func, neither of which is invokable.
func isNilCapability(impl Capability) bool {
	if impl == nil {
		return true
	}
	v := reflect.ValueOf(impl)
	switch v.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// sameImplementation reports shallow identity between two registered
// implementations: pointer identity for reference kinds, value equality for
// comparable kinds. Re-registering the same implementation under the same
// name is always accepted.
func sameImplementation(a, b Capability) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if av.Kind() != bv.Kind() {
		return false
	}
	switch av.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Slice, reflect.Chan, reflect.UnsafePointer:
		return av.Pointer() == bv.Pointer()
	}
	if av.Comparable() && bv.Comparable() {
		return a == b
	}
	return false
}
