package codemode

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// RunnerFileName is the generated program's name inside a workspace.
const RunnerFileName = "agentRunner.py"

const sectionBanner = "# ============================================================================\n"

// GenerateProgram renders the complete generated program for a run.
// The output is deterministic: the same prompt, tool list, and
// dependency payload always produce byte-identical text.
func GenerateProgram(prompt string, tools []Tool, deps interface{}) string {
	var b strings.Builder

	b.WriteString("\"\"\"Generated agent runner for codemode execution.\"\"\"\n\n")
	b.WriteString("import json\n")
	b.WriteString("import sys\n")
	b.WriteString("from typing import Any\n\n")

	b.WriteString(sectionBanner)
	b.WriteString("# TOOL DEFINITIONS\n")
	b.WriteString(sectionBanner)
	b.WriteString("\n")
	for _, tool := range tools {
		b.WriteString(renderTool(tool))
		b.WriteString("\n\n")
	}

	b.WriteString(sectionBanner)
	b.WriteString("# DEPENDENCIES\n")
	b.WriteString(sectionBanner)
	b.WriteString("\n")
	b.WriteString(serializeDependencies(deps))
	b.WriteString("\n\n")

	b.WriteString(sectionBanner)
	b.WriteString("# TASK\n")
	b.WriteString(sectionBanner)
	b.WriteString("\n")
	b.WriteString("PROMPT = \"\"\"" + prompt + "\"\"\"\n\n")

	b.WriteString(sectionBanner)
	b.WriteString("# MAIN EXECUTION\n")
	b.WriteString(sectionBanner)
	b.WriteString("\n")
	b.WriteString(`def main():
    """
    Execute the agent task using the available tools.

    Your goal is to:
    1. Use the tools defined above to accomplish the task in PROMPT
    2. Write code that calls these tools in the right sequence
    3. Return the final result as a JSON object with a "result" key

    The tools are already defined and ready to use.
    You have full access to Python's standard library.

    Example:
        result = some_tool(param1, param2)
        processed = another_tool(result)
        return {"result": processed}
    """

    # TODO: Implement the task logic here
    # Use the tools defined above to accomplish the task in PROMPT

    pass


if __name__ == "__main__":
    try:
        result = main()
        if result is not None:
            print("CODEMODE_RESULT:", json.dumps({"result": result, "success": True}))
        else:
            print("CODEMODE_RESULT:", json.dumps({"error": "No result returned", "success": False}))
    except Exception as e:
        print("CODEMODE_RESULT:", json.dumps({"error": str(e), "success": False}), file=sys.stderr)
        sys.exit(1)
`)

	return b.String()
}

// GenerateInstructions renders the natural-language task handed to the
// completion agent. The template is fixed and parameterized only by the
// prompt; the tools are not enumerated because the generated program
// already contains them.
func GenerateInstructions(prompt string) string {
	return fmt.Sprintf(`You are executing in Code Mode - a special mode where you write code to accomplish tasks.

TASK: %s

INSTRUCTIONS:
1. Read the %s file to understand the available tools
2. Implement the main() function to accomplish the task
3. Use the provided tools to complete the task
4. The result should be returned from main() and will be automatically serialized
5. Test your implementation by running: python %s
6. Once you get the desired output, your task is complete

The tools are already defined and implemented. Your job is to:
- Write the logic that calls these tools in the right order
- Handle the data flow between tool calls
- Return the final result

Remember: This is Code Mode - you're writing Python code that calls tools, not directly calling tools yourself.
`, prompt, RunnerFileName, RunnerFileName)
}

// renderTool emits a single tool definition. Caller-supplied code is
// used as-is after stripping decorator lines above the def; tools
// without code become signature-matching stubs.
func renderTool(tool Tool) string {
	if tool.Code != "" {
		return stripDecorators(tool.Code)
	}

	params := make([]string, 0, len(tool.Params))
	for _, p := range tool.Params {
		s := p.Name
		if p.Type != "" {
			s += ": " + p.Type
		}
		if p.HasDefault {
			s += " = " + pyLiteral(p.Default)
		}
		params = append(params, s)
	}

	ret := ""
	if tool.Returns != "" {
		ret = " -> " + tool.Returns
	}

	var b strings.Builder
	fmt.Fprintf(&b, "def %s(%s)%s:\n", tool.Name, strings.Join(params, ", "), ret)
	if tool.Description != "" {
		fmt.Fprintf(&b, "    \"\"\"%s\"\"\"\n", tool.Description)
	}
	b.WriteString("    # Tool implementation\n")
	b.WriteString("    # This function should be implemented or will be called via the agent\n")
	b.WriteString("    pass")
	return b.String()
}

// stripDecorators drops any lines above the first def so decorators
// attached in the tool's original context do not leak into the
// generated program.
func stripDecorators(code string) string {
	lines := strings.Split(code, "\n")
	start := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "def ") {
			start = i
			break
		}
	}
	if start < 0 {
		return strings.TrimRight(code, "\n")
	}
	return strings.TrimRight(strings.Join(lines[start:], "\n"), "\n")
}

// serializeDependencies renders the dependency payload as a Python
// assignment. A nil payload assigns None; a struct assigns the literal
// dict of its exported fields; anything else assigns its literal form
// directly. Values without a literal representation degrade to quoted
// strings, which is lossy and intentional.
func serializeDependencies(deps interface{}) string {
	if deps == nil {
		return "dependencies = None"
	}

	v := reflect.ValueOf(deps)
	if v.Kind() == reflect.Ptr && !v.IsNil() {
		v = v.Elem()
	}
	if v.Kind() == reflect.Struct {
		return "dependencies = " + structLiteral(v)
	}

	return "dependencies = " + pyLiteral(deps)
}

// structLiteral renders a struct's exported fields as a Python dict in
// field declaration order.
func structLiteral(v reflect.Value) string {
	t := v.Type()
	var parts []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		parts = append(parts, pyLiteral(f.Name)+": "+pyLiteral(v.Field(i).Interface()))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// pyLiteral renders a Go value as a Python literal. Map keys are sorted
// so the output is deterministic.
func pyLiteral(val interface{}) string {
	if val == nil {
		return "None"
	}

	switch x := val.(type) {
	case bool:
		if x {
			return "True"
		}
		return "False"
	case string:
		return strconv.Quote(x)
	case int:
		return strconv.Itoa(x)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", x)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	}

	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return "None"
		}
		return pyLiteral(v.Elem().Interface())
	case reflect.Slice, reflect.Array:
		parts := make([]string, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			parts = append(parts, pyLiteral(v.Index(i).Interface()))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case reflect.Map:
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, pyLiteral(k.Interface())+": "+pyLiteral(v.MapIndex(k).Interface()))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case reflect.Struct:
		return structLiteral(v)
	}

	// No literal representation; degrade to a quoted string.
	return strconv.Quote(fmt.Sprint(val))
}
