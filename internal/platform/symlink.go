package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// ErrSymlinkUnsupported is returned when the filesystem cannot create or read
// symlinks, either because it does not implement the afero link interfaces or
// because the OS refused the call (e.g., Windows without developer mode).
var ErrSymlinkUnsupported = errors.New("symlinks not supported")

// scratchName is the entry IsSymlinkSupported creates and removes.
const scratchName = ".promptitude-symlink-test"

// CreateSymlink creates a symbolic link at link pointing to target.
// Permission errors are reported as ErrSymlinkUnsupported so callers can
// switch to a copy without inspecting platform-specific error codes.
func CreateSymlink(fs afero.Fs, target, link string) error {
	linker, ok := fs.(afero.Linker)
	if !ok {
		return ErrSymlinkUnsupported
	}
	if err := linker.SymlinkIfPossible(target, link); err != nil {
		if errors.Is(err, os.ErrPermission) || errors.Is(err, afero.ErrNoSymlink) {
			return fmt.Errorf("%w: %v", ErrSymlinkUnsupported, err)
		}
		return err
	}
	return nil
}

// ReadSymlinkTarget returns the target of a symlink exactly as stored.
func ReadSymlinkTarget(fs afero.Fs, path string) (string, error) {
	reader, ok := fs.(afero.LinkReader)
	if !ok {
		return "", ErrSymlinkUnsupported
	}
	return reader.ReadlinkIfPossible(path)
}

// ResolveSymlinkTarget returns the absolute target of a symlink. Relative
// targets are resolved against the directory containing the link.
func ResolveSymlinkTarget(fs afero.Fs, path string) (string, error) {
	target, err := ReadSymlinkTarget(fs, path)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(path), target)
	}
	return filepath.Clean(target), nil
}

// Lstat stats path without following a trailing symlink when the filesystem
// allows it, and falls back to Stat otherwise.
func Lstat(fs afero.Fs, path string) (os.FileInfo, error) {
	if lstater, ok := fs.(afero.Lstater); ok {
		info, _, err := lstater.LstatIfPossible(path)
		return info, err
	}
	return fs.Stat(path)
}

// IsSymlink reports whether info describes a symbolic link.
func IsSymlink(info os.FileInfo) bool {
	return info != nil && info.Mode()&os.ModeSymlink != 0
}

// Exists reports whether path exists. Broken symlinks count as existing.
func Exists(fs afero.Fs, path string) bool {
	_, err := Lstat(fs, path)
	return err == nil
}

// TargetExists reports whether path exists after following symlinks.
func TargetExists(fs afero.Fs, path string) bool {
	_, err := fs.Stat(path)
	return err == nil
}

// RemoveLink removes a symlink or plain file. Missing paths are not an error.
func RemoveLink(fs afero.Fs, path string) error {
	if err := fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// CopyFile writes a whole-file copy of src to dst, replacing dst.
func CopyFile(fs afero.Fs, src, dst string) error {
	data, err := afero.ReadFile(fs, src)
	if err != nil {
		return err
	}
	return afero.WriteFile(fs, dst, data, 0644)
}

// IsSymlinkSupported reports whether symlinks can be created inside dir.
// The scratch link is removed before returning.
func IsSymlinkSupported(fs afero.Fs, dir string) bool {
	if _, ok := fs.(afero.Linker); !ok {
		return false
	}
	link := filepath.Join(dir, scratchName)
	_ = fs.Remove(link)
	defer fs.Remove(link)

	return CreateSymlink(fs, dir, link) == nil
}
