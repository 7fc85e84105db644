// Package naming computes the flat workspace name a mirrored file gets when it
// is projected into the prompts directory. A file keeps its original name
// unless two or more repositories currently mirror the same name, in which
// case every copy is suffixed as <base>@<repoId><ext>.
package naming

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// SuffixSeparator joins the base name and repository identifier.
const SuffixSeparator = "@"

// promptExtensions are multi-part extensions kept whole when suffixing, so
// "x.prompt.md" becomes "x@owner-repo.prompt.md" rather than "x.prompt@owner-repo.md".
var promptExtensions = []string{
	".instructions.md",
	".chatmode.md",
	".prompt.md",
	".agent.md",
}

// Index maps a filename to the distinct repository URLs whose mirror
// currently contains it. Build it fresh from disk for every resolution pass.
type Index map[string][]string

// Add records that repoURL mirrors filename.
func (idx Index) Add(repoURL, filename string) {
	for _, u := range idx[filename] {
		if u == repoURL {
			return
		}
	}
	idx[filename] = append(idx[filename], repoURL)
}

// Owners returns the sorted repository URLs mirroring filename.
func (idx Index) Owners(filename string) []string {
	owners := append([]string(nil), idx[filename]...)
	sort.Strings(owners)
	return owners
}

// Resolve returns the workspace name for filename mirrored from repoURL.
// Collisions are symmetric: when the name is shared, no repository keeps
// the bare name.
func Resolve(repoURL, filename string, idx Index) string {
	owners := idx.Owners(filename)
	if !containsString(owners, repoURL) {
		owners = append(owners, repoURL)
		sort.Strings(owners)
	}
	if len(owners) <= 1 {
		return filename
	}
	return Suffixed(filename, assignIDs(owners)[repoURL])
}

// Suffixed inserts "@id" between the base name and the extension.
func Suffixed(filename, id string) string {
	base, ext := SplitExt(filename)
	return base + SuffixSeparator + id + ext
}

// SplitExt splits filename into base and extension, keeping known prompt
// extensions together.
func SplitExt(filename string) (string, string) {
	lower := strings.ToLower(filename)
	for _, ext := range promptExtensions {
		if strings.HasSuffix(lower, ext) && len(filename) > len(ext) {
			return filename[:len(filename)-len(ext)], filename[len(filename)-len(ext):]
		}
	}
	ext := filepath.Ext(filename)
	return strings.TrimSuffix(filename, ext), ext
}

// Unsuffixed reverses Suffixed. ok is false when name carries no suffix.
func Unsuffixed(name string) (original, id string, ok bool) {
	base, ext := SplitExt(name)
	i := strings.LastIndex(base, SuffixSeparator)
	if i <= 0 || i == len(base)-1 {
		return name, "", false
	}
	return base[:i] + ext, base[i+1:], true
}

// assignIDs gives each owner a distinct identifier. Owners are visited in
// URL order; an identifier already taken gets a numeric tiebreaker.
func assignIDs(owners []string) map[string]string {
	ids := make(map[string]string, len(owners))
	used := make(map[string]bool, len(owners))
	for _, u := range owners {
		id := RepoID(u)
		candidate := id
		for n := 2; used[candidate]; n++ {
			candidate = fmt.Sprintf("%s-%d", id, n)
		}
		used[candidate] = true
		ids[u] = candidate
	}
	return ids
}

func containsString(slice []string, val string) bool {
	for _, s := range slice {
		if s == val {
			return true
		}
	}
	return false
}
