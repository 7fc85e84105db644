package userdata

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/nventive/Promptitude/internal/platform"
)

// CheckLayout validates the storage root and prompts directory.
// When fix is true, it attempts to repair issues.
func CheckLayout(w io.Writer, fs afero.Fs, storageRoot, promptsDir string, fix bool) error {
	fmt.Fprintln(w, "Layout check:")

	checkDirWithPerm(w, fs, storageRoot, DirPermNormal, fix)
	checkDirExists(w, fs, GetReposRoot(storageRoot), fix)
	checkDirExists(w, fs, promptsDir, fix)
	checkFileExists(w, fs, GetLedgerPath(storageRoot))

	if ok, _ := afero.DirExists(fs, promptsDir); ok {
		if platform.IsSymlinkSupported(fs, promptsDir) {
			fmt.Fprintf(w, "  [ OK ] symlinks supported in %s\n", promptsDir)
		} else {
			fmt.Fprintf(w, "  [WARN] symlinks unavailable in %s (activations will be copied)\n", promptsDir)
		}
	}

	return nil
}

// EnsureLayout creates the storage root, mirror root and prompts directory.
func EnsureLayout(fs afero.Fs, storageRoot, promptsDir string) error {
	for _, dir := range []string{storageRoot, GetReposRoot(storageRoot), promptsDir} {
		if err := fs.MkdirAll(dir, DirPermNormal); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

func checkDirWithPerm(w io.Writer, fs afero.Fs, path string, expectedPerm os.FileMode, fix bool) {
	info, err := fs.Stat(path)
	if os.IsNotExist(err) {
		fmt.Fprintf(w, "  [MISS] %s does not exist\n", path)
		if fix {
			if mkErr := fs.MkdirAll(path, expectedPerm); mkErr != nil {
				fmt.Fprintf(w, "  [FAIL] Could not create %s: %v\n", path, mkErr)
				return
			}
			platform.Chmod(fs, path, expectedPerm)
			fmt.Fprintf(w, "  [FIX ] Created %s with %o\n", path, expectedPerm)
		}
		return
	}
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %s: %v\n", path, err)
		return
	}

	actualPerm := info.Mode().Perm()
	if actualPerm&0700 != 0700 {
		fmt.Fprintf(w, "  [WARN] %s has permissions %o (expected %o)\n", path, actualPerm, expectedPerm)
		if fix {
			if chErr := platform.Chmod(fs, path, expectedPerm); chErr != nil {
				fmt.Fprintf(w, "  [FAIL] Could not fix permissions on %s: %v\n", path, chErr)
				return
			}
			fmt.Fprintf(w, "  [FIX ] Fixed permissions on %s to %o\n", path, expectedPerm)
		}
		return
	}
	fmt.Fprintf(w, "  [ OK ] %s (permissions %o)\n", path, actualPerm)
}

func checkFileExists(w io.Writer, fs afero.Fs, path string) {
	if _, err := fs.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(w, "  [MISS] %s does not exist (nothing activated yet)\n", path)
		return
	}
	fmt.Fprintf(w, "  [ OK ] %s exists\n", path)
}

func checkDirExists(w io.Writer, fs afero.Fs, path string, fix bool) {
	info, err := fs.Stat(path)
	if os.IsNotExist(err) {
		fmt.Fprintf(w, "  [MISS] %s does not exist\n", path)
		if fix {
			if mkErr := fs.MkdirAll(path, DirPermNormal); mkErr != nil {
				fmt.Fprintf(w, "  [FAIL] Could not create %s: %v\n", path, mkErr)
				return
			}
			fmt.Fprintf(w, "  [FIX ] Created %s\n", path)
		}
		return
	}
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %s: %v\n", path, err)
		return
	}
	if !info.IsDir() {
		fmt.Fprintf(w, "  [WARN] %s exists but is not a directory\n", path)
		return
	}
	fmt.Fprintf(w, "  [ OK ] %s exists\n", path)
}
