package catalog

import (
	"strings"
	"testing"
)

func TestDescribe(t *testing.T) {
	long := strings.Repeat("a", 120)

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bare frontmatter", "---\ndescription: Review a pull request\nmode: agent\n---\n# Title\nBody", "Review a pull request"},
		{"double quoted", "---\ndescription: \"Explain: the code\"\n---\nBody", "Explain: the code"},
		{"single quoted", "---\ndescription: 'Write tests'\n---\n", "Write tests"},
		{"invalid yaml falls back to line match", "---\ndescription: Fix: everything\n\tbad: [\n---\nBody", "Fix: everything"},
		{"frontmatter without description", "---\nmode: agent\n---\n\n# Heading\nFirst real line", "First real line"},
		{"skips comments", "<!-- hidden -->\n// note\n# Title\n\n  Summarize the diff  \n", "Summarize the diff"},
		{"truncates", long, strings.Repeat("a", 100) + "..."},
		{"exactly max length", strings.Repeat("b", 100), strings.Repeat("b", 100)},
		{"nothing usable", "# Only a heading\n\n", NoDescription},
		{"empty", "", NoDescription},
		{"crlf", "---\r\ndescription: Windows file\r\n---\r\nBody", "Windows file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Describe([]byte(tt.content)); got != tt.want {
				t.Errorf("Describe() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		content string
		want    int
	}{
		{"", 0},
		{"one", 1},
		{"one\n", 1},
		{"one\ntwo", 2},
		{"one\ntwo\n\n", 3},
	}
	for _, tt := range tests {
		if got := CountLines([]byte(tt.content)); got != tt.want {
			t.Errorf("CountLines(%q) = %d, want %d", tt.content, got, tt.want)
		}
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		filename string
		want     Type
	}{
		{"review.prompt.md", TypePrompts},
		{"csharp.instructions.md", TypeInstructions},
		{"Style-Guide.md", TypeInstructions},
		{"planner.agent.md", TypeAgents},
		{"Architect.ChatMode.md", TypeAgents},
		{"legacy-chat-mode.md", TypeAgents},
		{"agent-instructions.md", TypeAgents},
		{"notes.txt", TypePrompts},
	}
	for _, tt := range tests {
		if got := Categorize(tt.filename); got != tt.want {
			t.Errorf("Categorize(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestParseType(t *testing.T) {
	for in, want := range map[string]Type{
		"prompt":       TypePrompts,
		"Prompts":      TypePrompts,
		"instructions": TypeInstructions,
		"agent":        TypeAgents,
	} {
		got, ok := ParseType(in)
		if !ok || got != want {
			t.Errorf("ParseType(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if _, ok := ParseType("skills"); ok {
		t.Error("ParseType(skills) should fail")
	}
}
