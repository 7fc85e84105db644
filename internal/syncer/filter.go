package syncer

import (
	"path"
	"strings"

	"github.com/nventive/Promptitude/internal/config"
	"github.com/nventive/Promptitude/internal/provider"
)

// categoryDirs maps each category to the top-level repository directories
// it syncs.
var categoryDirs = map[string][]string{
	"prompts":      {"prompts"},
	"instructions": {"instructions"},
	"agents":       {"agents", "chatmodes"},
}

// allowedExtensions is the fixed extension allow-list.
var allowedExtensions = []string{".md", ".txt"}

// Filter selects the tree entries worth mirroring.
type Filter struct {
	prefixes []string
}

// NewFilter builds a filter for the enabled categories.
func NewFilter(c config.Categories) Filter {
	var f Filter
	enabled := map[string]bool{
		"prompts":      c.Prompts,
		"instructions": c.Instructions,
		"agents":       c.Agents,
	}
	for _, category := range []string{"prompts", "instructions", "agents"} {
		if !enabled[category] {
			continue
		}
		for _, dir := range categoryDirs[category] {
			f.prefixes = append(f.prefixes, dir+"/")
		}
	}
	return f
}

// Match keeps blob entries under an enabled prefix with an allowed extension,
// preserving tree order. Matching is case-sensitive.
func (f Filter) Match(entries []provider.TreeEntry) []provider.TreeEntry {
	var out []provider.TreeEntry
	for _, e := range entries {
		if e.Type != provider.EntryBlob {
			continue
		}
		p := normalizePath(e.Path)
		if f.hasPrefix(p) && hasAllowedExtension(p) {
			out = append(out, provider.TreeEntry{Path: p, Type: e.Type})
		}
	}
	return out
}

func (f Filter) hasPrefix(p string) bool {
	for _, prefix := range f.prefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

func hasAllowedExtension(p string) bool {
	ext := path.Ext(p)
	for _, allowed := range allowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func normalizePath(p string) string {
	return strings.TrimLeft(strings.ReplaceAll(p, `\`, "/"), "/")
}
