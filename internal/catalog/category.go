package catalog

import "strings"

// Type is the category a file is listed under.
type Type string

const (
	TypePrompts      Type = "prompts"
	TypeInstructions Type = "instructions"
	TypeAgents       Type = "agents"
)

// Types lists every category in display order.
var Types = []Type{TypePrompts, TypeInstructions, TypeAgents}

// ParseType accepts a category name, singular or plural.
func ParseType(s string) (Type, bool) {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s")
	for _, t := range Types {
		if strings.TrimSuffix(string(t), "s") == s {
			return t, true
		}
	}
	return "", false
}

// Categorize classifies a filename by case-insensitive substring.
func Categorize(filename string) Type {
	lower := strings.ToLower(filename)
	switch {
	case strings.Contains(lower, "agent"),
		strings.Contains(lower, "chatmode"),
		strings.Contains(lower, "chat-mode"):
		return TypeAgents
	case strings.Contains(lower, "instruction"),
		strings.Contains(lower, "guide"):
		return TypeInstructions
	default:
		return TypePrompts
	}
}
