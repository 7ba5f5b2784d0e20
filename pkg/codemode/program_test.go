package codemode

import (
	"strings"
	"testing"
)

func TestGenerateProgramDeterministic(t *testing.T) {
	tools := []Tool{
		{Name: "add", Params: []Param{{Name: "a", Type: "int"}, {Name: "b", Type: "int"}}, Returns: "int"},
	}
	deps := map[string]interface{}{"z": 1, "a": "x", "m": true}

	first := GenerateProgram("add 2 and 3", tools, deps)
	second := GenerateProgram("add 2 and 3", tools, deps)
	if first != second {
		t.Fatal("expected byte-identical output for identical inputs")
	}
}

func TestGenerateProgramSections(t *testing.T) {
	program := GenerateProgram("do the thing", nil, nil)

	sections := []string{
		"# TOOL DEFINITIONS",
		"# DEPENDENCIES",
		"# TASK",
		"# MAIN EXECUTION",
	}
	last := -1
	for _, s := range sections {
		idx := strings.Index(program, s)
		if idx < 0 {
			t.Fatalf("expected section %q in generated program", s)
		}
		if idx < last {
			t.Errorf("section %q out of order", s)
		}
		last = idx
	}

	if !strings.Contains(program, `PROMPT = """do the thing"""`) {
		t.Error("expected the prompt embedded as a literal text block")
	}
	if !strings.Contains(program, `print("CODEMODE_RESULT:", json.dumps({"result": result, "success": True}))`) {
		t.Error("expected the success marker emission in the entry point")
	}
	if !strings.Contains(program, "file=sys.stderr") {
		t.Error("expected the failure marker routed to stderr")
	}
	if !strings.Contains(program, "sys.exit(1)") {
		t.Error("expected a nonzero exit on failure")
	}
}

func TestRenderToolStub(t *testing.T) {
	tool := Tool{
		Name:        "get_weather",
		Description: "Look up the weather.",
		Params: []Param{
			{Name: "city", Type: "str"},
			{Name: "units", Type: "str", Default: "metric", HasDefault: true},
			{Name: "retries", Type: "int", Default: 3, HasDefault: true},
			{Name: "strict", Type: "bool", Default: false, HasDefault: true},
		},
		Returns: "str",
	}

	code := renderTool(tool)
	if !strings.Contains(code, `def get_weather(city: str, units: str = "metric", retries: int = 3, strict: bool = False) -> str:`) {
		t.Errorf("unexpected signature:\n%s", code)
	}
	if !strings.Contains(code, `"""Look up the weather."""`) {
		t.Error("expected the description rendered as a docstring")
	}
	if !strings.Contains(code, "pass") {
		t.Error("expected a placeholder body")
	}
}

func TestRenderToolWithCode(t *testing.T) {
	tool := Tool{
		Name: "shout",
		Code: "@agent.tool\n@traced\ndef shout(text: str) -> str:\n    return text.upper()\n",
	}

	code := renderTool(tool)
	if strings.Contains(code, "@agent.tool") || strings.Contains(code, "@traced") {
		t.Errorf("expected decorators stripped:\n%s", code)
	}
	if !strings.HasPrefix(code, "def shout(") {
		t.Errorf("expected code to start at the def line:\n%s", code)
	}
	if !strings.Contains(code, "return text.upper()") {
		t.Error("expected the original body preserved")
	}
}

func TestReservedParamsNeverRendered(t *testing.T) {
	agent := &legacyAgent{tools: []Tool{{
		Name: "lookup",
		Params: []Param{
			{Name: "run_context", Type: "Any"},
			{Name: "key", Type: "str"},
		},
	}}}

	program := GenerateProgram("look something up", ExtractTools(agent), nil)
	if strings.Contains(program, "run_context") {
		t.Error("reserved parameter leaked into the generated program")
	}
	if !strings.Contains(program, "def lookup(key: str):") {
		t.Errorf("expected signature with only the real parameter, got:\n%s", program)
	}
}

func TestSerializeDependencies(t *testing.T) {
	if got := serializeDependencies(nil); got != "dependencies = None" {
		t.Errorf("nil deps: got %q", got)
	}

	type dbDeps struct {
		Host string
		Port int
	}
	got := serializeDependencies(&dbDeps{Host: "localhost", Port: 5432})
	want := `dependencies = {"Host": "localhost", "Port": 5432}`
	if got != want {
		t.Errorf("struct deps: got %q, want %q", got, want)
	}

	got = serializeDependencies(map[string]interface{}{"b": 2, "a": 1})
	want = `dependencies = {"a": 1, "b": 2}`
	if got != want {
		t.Errorf("map deps: got %q, want %q", got, want)
	}

	if got := serializeDependencies(42); got != "dependencies = 42" {
		t.Errorf("scalar deps: got %q", got)
	}
}

func TestPyLiteral(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{nil, "None"},
		{true, "True"},
		{false, "False"},
		{"hi", `"hi"`},
		{7, "7"},
		{3.5, "3.5"},
		{[]interface{}{1, "two"}, `[1, "two"]`},
		{map[string]int{"b": 2, "a": 1}, `{"a": 1, "b": 2}`},
	}
	for _, c := range cases {
		if got := pyLiteral(c.in); got != c.want {
			t.Errorf("pyLiteral(%v): got %q, want %q", c.in, got, c.want)
		}
	}
}

func TestGenerateInstructions(t *testing.T) {
	instr := GenerateInstructions("summarize the report")
	if !strings.Contains(instr, "TASK: summarize the report") {
		t.Error("expected the prompt in the instructions")
	}
	if !strings.Contains(instr, RunnerFileName) {
		t.Error("expected the runner file named in the instructions")
	}

	// The template is fixed: two prompts differ only where the prompt
	// is interpolated.
	other := GenerateInstructions("different prompt")
	if instr == other {
		t.Error("expected instructions to vary with the prompt")
	}
}
