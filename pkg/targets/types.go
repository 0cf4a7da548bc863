// Package targets contains the registry of declared build targets and the call data passed to them.
package targets

import (
	"context"
	"fmt"
	"strings"

	"github.com/JulianFerry/easymake/pkg/value"
)

// Param describes one declared parameter of a target
type Param struct {
	Name string
	// Default is the declared default. It may be nil even if HasDefault is set when the default
	// has no Value representation (i.e. None in a script); the invoker supplies it in that case.
	Default    value.Value
	HasDefault bool
	// KeywordOnly parameters are never passed positionally
	KeywordOnly bool
}

// Invoker runs a target with bound arguments
type Invoker interface {
	Invoke(ctx context.Context, call *Call) error
}

// Descriptor is the static description of a target. It is built once at registration time.
type Descriptor struct {
	Name   string
	Desc   string
	Params []Param
	// VarArgs accepts any number of extra positional arguments
	VarArgs bool
	// VarKwargs accepts any number of extra keyword arguments
	VarKwargs bool
	Invoker   Invoker
}

// Param returns the declared parameter called name
func (d *Descriptor) Param(name string) (Param, bool) {
	for _, param := range d.Params {
		if param.Name == name {
			return param, true
		}
	}
	return Param{}, false
}

// Signature renders the declared parameters, i.e. "build(name, verbose=false, *args)"
func (d *Descriptor) Signature() string {
	parts := make([]string, 0, len(d.Params)+2)
	for _, param := range d.Params {
		switch {
		case param.HasDefault && param.Default != nil:
			parts = append(parts, param.Name+"="+value.Encode(param.Default))
		case param.HasDefault:
			parts = append(parts, param.Name+"=?")
		default:
			parts = append(parts, param.Name)
		}
	}

	if d.VarArgs {
		parts = append(parts, "*args")
	}
	if d.VarKwargs {
		parts = append(parts, "**kwargs")
	}

	return fmt.Sprintf("%s(%s)", d.Name, strings.Join(parts, ", "))
}

// Argument is a declared parameter together with the value bound to it
type Argument struct {
	Param Param
	// Value is nil if the parameter fell back to a default without a Value representation
	Value value.Value
	// FromDefault is set if no keyword or flag supplied the value
	FromDefault bool
}

// Call holds the arguments computed for one target invocation
type Call struct {
	Target *Descriptor
	// Bound lists the satisfied declared parameters in declaration order
	Bound []Argument
	// Missing lists declared parameters that have neither a supplied value nor a default
	Missing []string
	// Args holds the extra positional arguments (only for targets with VarArgs)
	Args []value.Value
	// Kwargs holds the extra keyword arguments (only for targets with VarKwargs)
	Kwargs *value.Map
}

// Complete reports whether every declared parameter is bound
func (c *Call) Complete() bool {
	return len(c.Missing) == 0
}

// Get returns the value bound to the declared parameter name
func (c *Call) Get(name string) (value.Value, bool) {
	for _, arg := range c.Bound {
		if arg.Param.Name == name {
			return arg.Value, arg.Value != nil
		}
	}
	return nil, false
}
