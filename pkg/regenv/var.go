// Package regenv is a self-documenting environment variable registry.
// Every configuration knob the registry reads from the environment is
// declared here via one of the RegisterXVar functions, which both creates
// the accessor used at runtime and records it for ExportMarkdown/ExportJSON
// so operators have a single generated source of truth.
package regenv

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Component names the subsystem a Var configures, used to group output in
// ExportMarkdown.
type Component string

const (
	ComponentServer      Component = "HTTP Server"
	ComponentDatabase    Component = "Database"
	ComponentObjectStore Component = "Object Storage"
	ComponentIdentity    Component = "Identity Exchange"
	ComponentAuth        Component = "Auth"
	ComponentObservability Component = "Observability"
	ComponentCLI         Component = "Admin CLI"
)

// VarType identifies the underlying type of a Var's value.
type VarType int

const (
	TypeString VarType = iota
	TypeBool
	TypeInt
	TypeDuration
	TypeFloat
)

// String renders the type for documentation output.
func (t VarType) String() string {
	switch t {
	case TypeString:
		return "String"
	case TypeBool:
		return "Boolean"
	case TypeInt:
		return "Integer"
	case TypeFloat:
		return "Floating-Point"
	case TypeDuration:
		return "Duration"
	default:
		return "Unknown"
	}
}

// Var describes one registered environment variable and provides typed
// access to its current value.
type Var struct {
	EnvName     string
	Default     string
	Description string
	Component   Component
	Type        VarType
	// Hidden excludes the var from ExportMarkdown/ExportJSON, for internal
	// or deprecated knobs that should still be readable but not advertised.
	Hidden bool
}

// Name returns the environment variable's name.
func (v Var) Name() string { return v.EnvName }

// DefaultValue returns the var's default, as a string regardless of Type.
func (v Var) DefaultValue() string { return v.Default }

// Lookup returns the raw environment value and whether it was set.
func (v Var) Lookup() (string, bool) {
	return os.LookupEnv(v.EnvName)
}

// Get returns the current raw environment value, or Default if unset.
func (v Var) Get() string {
	if val, ok := v.Lookup(); ok {
		return val
	}
	return v.Default
}

var allVars = map[string]Var{}

func register(v Var) Var {
	allVars[v.EnvName] = v
	return v
}

// VarDescriptions returns every registered Var sorted by name.
func VarDescriptions() []Var {
	names := make([]string, 0, len(allVars))
	for name := range allVars {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Var, 0, len(names))
	for _, name := range names {
		out = append(out, allVars[name])
	}
	return out
}

// VarByName looks up a registered Var by its environment variable name.
func VarByName(name string) (Var, bool) {
	v, ok := allVars[name]
	return v, ok
}

// StringVar is a Var typed as a string.
type StringVar struct{ Var }

// Get returns the current value of the variable.
func (v StringVar) Get() string { return v.Var.Get() }

// RegisterStringVar declares a string-valued environment variable.
func RegisterStringVar(name, def, desc string, component Component) StringVar {
	return StringVar{register(Var{EnvName: name, Default: def, Description: desc, Component: component, Type: TypeString})}
}

// BoolVar is a Var typed as a boolean.
type BoolVar struct{ Var }

// Get parses the current value as a bool, falling back to false on a
// malformed value.
func (v BoolVar) Get() bool {
	b, _ := strconv.ParseBool(v.Var.Get())
	return b
}

// RegisterBoolVar declares a bool-valued environment variable.
func RegisterBoolVar(name string, def bool, desc string, component Component) BoolVar {
	return BoolVar{register(Var{EnvName: name, Default: strconv.FormatBool(def), Description: desc, Component: component, Type: TypeBool})}
}

// IntVar is a Var typed as an integer.
type IntVar struct{ Var }

// Get parses the current value as an int, falling back to 0 on a malformed
// value.
func (v IntVar) Get() int {
	n, _ := strconv.Atoi(v.Var.Get())
	return n
}

// RegisterIntVar declares an int-valued environment variable.
func RegisterIntVar(name string, def int, desc string, component Component) IntVar {
	return IntVar{register(Var{EnvName: name, Default: strconv.Itoa(def), Description: desc, Component: component, Type: TypeInt})}
}

// DurationVar is a Var typed as a time.Duration.
type DurationVar struct{ Var }

// Get parses the current value as a duration, falling back to 0 on a
// malformed value.
func (v DurationVar) Get() time.Duration {
	d, _ := time.ParseDuration(v.Var.Get())
	return d
}

// RegisterDurationVar declares a duration-valued environment variable.
func RegisterDurationVar(name string, def time.Duration, desc string, component Component) DurationVar {
	return DurationVar{register(Var{EnvName: name, Default: def.String(), Description: desc, Component: component, Type: TypeDuration})}
}

// ExportMarkdown renders every non-hidden registered Var as a Markdown
// document grouped by Component, optionally restricted to components in
// filter (all components when filter is empty).
func ExportMarkdown(filter ...Component) string {
	allowed := componentSet(filter)
	byComponent := map[Component][]Var{}
	for _, v := range VarDescriptions() {
		if v.Hidden {
			continue
		}
		if allowed != nil && !allowed[v.Component] {
			continue
		}
		byComponent[v.Component] = append(byComponent[v.Component], v)
	}

	components := make([]string, 0, len(byComponent))
	for c := range byComponent {
		components = append(components, string(c))
	}
	sort.Strings(components)

	var b strings.Builder
	for _, c := range components {
		fmt.Fprintf(&b, "## %s\n\n", c)
		for _, v := range byComponent[Component(c)] {
			fmt.Fprintf(&b, "- `%s` (%s, default `%s`): %s\n", v.EnvName, v.Type, v.Default, v.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}

type jsonVar struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ExportJSON renders every non-hidden registered Var's name and description
// as a JSON array, optionally restricted to components in filter.
func ExportJSON(filter ...Component) ([]byte, error) {
	allowed := componentSet(filter)
	out := make([]jsonVar, 0, len(allVars))
	for _, v := range VarDescriptions() {
		if v.Hidden {
			continue
		}
		if allowed != nil && !allowed[v.Component] {
			continue
		}
		out = append(out, jsonVar{Name: v.EnvName, Description: v.Description})
	}
	return json.MarshalIndent(out, "", "  ")
}

func componentSet(filter []Component) map[Component]bool {
	if len(filter) == 0 {
		return nil
	}
	set := make(map[Component]bool, len(filter))
	for _, c := range filter {
		set[c] = true
	}
	return set
}
