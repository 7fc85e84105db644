// Package platform provides the filesystem primitives the projector builds on:
// symlink creation and inspection over an afero filesystem, whole-file copies,
// and permission management. Filesystems that cannot create symlinks (no
// afero.Linker, or the OS denies the call) are reported through
// ErrSymlinkUnsupported so callers can fall back to copying.
package platform
