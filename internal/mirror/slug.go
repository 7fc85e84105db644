package mirror

import (
	"encoding/base32"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// maxSlugLen is the common filename limit (ext4, APFS, NTFS).
const maxSlugLen = 255

// ErrURLTooLong is returned for repository URLs whose slug would not fit in
// a single directory name.
var ErrURLTooLong = errors.New("repository URL too long to mirror")

// slugEncoding is lowercase base32 without padding. It survives
// case-insensitive filesystems, which base64 does not.
var slugEncoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// Slug encodes a repository URL into a filesystem-safe directory name that
// ParseSlug reverses exactly. URLs longer than about 159 bytes produce slugs
// past the filename limit; CheckURL rejects them.
func Slug(repoURL string) string {
	return slugEncoding.EncodeToString([]byte(repoURL))
}

// ParseSlug decodes a directory name produced by Slug. Case is ignored, so a
// directory renamed by a case-folding filesystem still decodes.
func ParseSlug(slug string) (string, error) {
	data, err := slugEncoding.DecodeString(strings.ToLower(slug))
	if err != nil {
		return "", fmt.Errorf("decoding repository slug %q: %w", slug, err)
	}
	return string(data), nil
}

// CheckURL reports whether repoURL can be mirrored.
func CheckURL(repoURL string) error {
	if n := slugEncoding.EncodedLen(len(repoURL)); n > maxSlugLen {
		return fmt.Errorf("%w: %s encodes to %d bytes, limit is %d", ErrURLTooLong, repoURL, n, maxSlugLen)
	}
	return nil
}

// OwnerOf recovers the repository URL and original filename from a path
// ending in repos/<slug>/<name>, regardless of where the storage root lived
// when the path was written.
func OwnerOf(path string) (repoURL, name string, ok bool) {
	segments := strings.FieldsFunc(filepath.ToSlash(path), func(r rune) bool { return r == '/' })
	n := len(segments)
	if n < 3 || segments[n-3] != reposMarker {
		return "", "", false
	}
	u, err := ParseSlug(segments[n-2])
	if err != nil || u == "" {
		return "", "", false
	}
	return u, segments[n-1], true
}
