package codemode

import (
	"context"
	"reflect"
	"runtime"
	"strconv"
	"strings"
)

// Param describes one tool parameter in declaration order.
type Param struct {
	Name string
	// Type is a Python-style type hint ("str", "int", ...). Empty means
	// the rendered parameter carries no annotation.
	Type string
	// Default is the parameter's default value; HasDefault distinguishes
	// an explicit nil default from no default at all.
	Default    interface{}
	HasDefault bool
}

// Tool describes a callable the completion agent may invoke from the
// generated program.
type Tool struct {
	Name        string
	Description string
	Params      []Param
	Returns     string
	// Code is the caller-supplied Python body for this tool, used
	// verbatim in the generated program (decorator lines above the def
	// are stripped). Empty means a signature-matching stub is emitted.
	Code string
	// Func is an optional reference to the backing Go callable. It is
	// never executed by the pipeline; it exists so a name can be
	// recovered for tools registered as raw functions.
	Func interface{}
}

// Toolset is an ordered tool registry. Registration order is the order
// tools appear in the generated program.
type Toolset struct {
	tools []Tool
	index map[string]int
}

// NewToolset creates an empty toolset.
func NewToolset() *Toolset {
	return &Toolset{index: make(map[string]int)}
}

// Register adds a tool, filling defaults (name from the backing
// function) and replacing any previously registered tool with the same
// name in place.
func (t *Toolset) Register(tool Tool) {
	if tool.Name == "" {
		tool.Name = funcName(tool.Func)
	}
	if i, ok := t.index[tool.Name]; ok {
		t.tools[i] = tool
		return
	}
	t.index[tool.Name] = len(t.tools)
	t.tools = append(t.tools, tool)
}

// Tools returns the registered tools in registration order.
func (t *Toolset) Tools() []Tool {
	out := make([]Tool, len(t.tools))
	copy(out, t.tools)
	return out
}

// Len returns the number of registered tools.
func (t *Toolset) Len() int { return len(t.tools) }

// Tool sources. An agent-like value is probed against these shapes in
// the order listed; the first match wins.

// ToolsetHolder is the primary shape: the agent exposes an ordered
// function toolset.
type ToolsetHolder interface {
	FunctionToolset() *Toolset
}

// FunctionToolsHolder is the legacy flat shape: a plain slice of tool
// wrappers in registration order.
type FunctionToolsHolder interface {
	FunctionTools() []Tool
}

// RawFuncHolder exposes plain Go functions with no wrapper metadata.
// Names are recovered from the function symbols; parameter names are
// synthesized since reflection does not preserve them.
type RawFuncHolder interface {
	CodemodeTools() []interface{}
}

// reservedParams are context-carrying parameter names that never appear
// in a generated signature. The completion agent supplies its own
// context.
var reservedParams = map[string]bool{
	"ctx":         true,
	"context":     true,
	"run_context": true,
}

// ExtractTools produces the ordered tool list for an agent-like value.
// Unrecognized values yield an empty slice, not an error.
func ExtractTools(agent interface{}) []Tool {
	switch a := agent.(type) {
	case ToolsetHolder:
		return normalizeTools(a.FunctionToolset().Tools())
	case FunctionToolsHolder:
		return normalizeTools(a.FunctionTools())
	case RawFuncHolder:
		var tools []Tool
		for _, fn := range a.CodemodeTools() {
			tools = append(tools, toolFromFunc(fn))
		}
		return tools
	}
	return nil
}

// normalizeTools fills derivable defaults and drops reserved parameters.
func normalizeTools(in []Tool) []Tool {
	out := make([]Tool, 0, len(in))
	for _, tool := range in {
		if tool.Name == "" {
			tool.Name = funcName(tool.Func)
		}
		params := make([]Param, 0, len(tool.Params))
		for _, p := range tool.Params {
			if reservedParams[p.Name] {
				continue
			}
			params = append(params, p)
		}
		tool.Params = params
		out = append(out, tool)
	}
	return out
}

// toolFromFunc builds a Tool from a bare Go function via reflection.
// Parameter names are synthesized as arg0, arg1, ... in declaration
// order; context.Context parameters are skipped.
func toolFromFunc(fn interface{}) Tool {
	tool := Tool{
		Name: funcName(fn),
		Func: fn,
	}

	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return tool
	}

	t := v.Type()
	for i := 0; i < t.NumIn(); i++ {
		in := t.In(i)
		if in == contextType {
			continue
		}
		tool.Params = append(tool.Params, Param{
			Name: "arg" + strconv.Itoa(i),
			Type: pyType(in),
		})
	}
	if t.NumOut() > 0 {
		tool.Returns = pyType(t.Out(0))
	}
	return tool
}

var contextType = reflect.TypeOf((*context.Context)(nil)).Elem()

// funcName recovers the short name of a function value, e.g.
// "github.com/acme/pkg.Add" -> "Add". Anonymous and non-func values
// yield "tool".
func funcName(fn interface{}) string {
	if fn == nil {
		return "tool"
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return "tool"
	}
	rf := runtime.FuncForPC(v.Pointer())
	if rf == nil {
		return "tool"
	}
	name := rf.Name()
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	// Closures come out as "funcN" suffixes; strip the -fm method
	// wrapper suffix as well.
	name = strings.TrimSuffix(name, "-fm")
	if name == "" {
		return "tool"
	}
	return name
}

// pyType maps a Go type to the Python-style hint used in generated
// signatures. Unknown types map to "Any".
func pyType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "str"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "int"
	case reflect.Float32, reflect.Float64:
		return "float"
	case reflect.Bool:
		return "bool"
	case reflect.Slice, reflect.Array:
		return "list"
	case reflect.Map:
		return "dict"
	case reflect.Ptr:
		return pyType(t.Elem())
	}
	return "Any"
}
