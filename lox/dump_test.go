package lox

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDumpTokens(t *testing.T) {
	tokens, _ := Scan(`print "hi" + 1;`)
	out, err := DumpTokens(tokens)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}

	var decoded []map[string]any
	if err := yaml.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("dump is not valid yaml: %v\n%s", err, out)
	}
	if len(decoded) != len(tokens) {
		t.Fatalf("expected %d entries, got %d", len(tokens), len(decoded))
	}
	if decoded[0]["type"] != "PRINT" || decoded[1]["literal"] != "hi" {
		t.Fatalf("unexpected entries %v %v", decoded[0], decoded[1])
	}
	if decoded[len(decoded)-1]["type"] != "EOF" {
		t.Fatalf("last entry should be EOF, got %v", decoded[len(decoded)-1])
	}
}

func TestDumpProgram(t *testing.T) {
	stmts := mustParse(t, "fun f(a) { return a * 2; }\nprint f(1);")
	out, err := DumpProgram(stmts)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	text := string(out)
	for _, want := range []string{
		"- node: function",
		"name: f",
		"params:",
		"node: return",
		"node: binary",
		"node: call",
		"kind: number",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("dump missing %q:\n%s", want, text)
		}
	}
}
