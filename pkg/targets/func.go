package targets

import (
	"context"
	"fmt"
	"strings"
)

// MissingArgumentError is returned when a target is called without all of its required parameters
type MissingArgumentError struct {
	Target string
	Params []string
}

var _ error = (*MissingArgumentError)(nil)

func (e MissingArgumentError) Error() string {
	noun := "argument"
	if len(e.Params) > 1 {
		noun = "arguments"
	}
	return fmt.Sprintf("%s() missing %d required %s: %s", e.Target, len(e.Params), noun, strings.Join(e.Params, ", "))
}

// Func implements a target in Go
type Func func(ctx context.Context, call *Call) error

// Invoke rejects incomplete calls with a MissingArgumentError before running f
func (f Func) Invoke(ctx context.Context, call *Call) error {
	if !call.Complete() {
		return &MissingArgumentError{Target: call.Target.Name, Params: call.Missing}
	}
	return f(ctx, call)
}

// NewFunc builds a descriptor for a Go target
func NewFunc(name string, params []Param, fn Func) *Descriptor {
	return &Descriptor{
		Name:    name,
		Params:  params,
		Invoker: fn,
	}
}
