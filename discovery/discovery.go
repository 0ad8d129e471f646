// Package discovery lists the generated test scripts that a run will execute.
package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/qa-agent/qa-acceptor/types"
)

// DefaultScriptExt is the extension of scripts emitted by the script generator
const DefaultScriptExt = ".py"

// ErrNotFound is matched by errors.Is for any NotFoundError
var ErrNotFound = errors.New("test directory not found")

// NotFoundError indicates the test directory is missing or not a directory
type NotFoundError struct {
	Dir    string
	Reason string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("test folder not found: %s (%s)", e.Dir, e.Reason)
}

// Is makes errors.Is(err, ErrNotFound) match
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Discover returns the scripts in dir whose name ends in ext, sorted
// lexicographically by file name. Sub-directories are not descended into.
func Discover(dir string, ext string) ([]types.ScriptFile, error) {
	if ext == "" {
		ext = DefaultScriptExt
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for test directory '%s': %w", dir, err)
	}

	info, err := os.Stat(absDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotFoundError{Dir: absDir, Reason: "does not exist"}
		}
		return nil, fmt.Errorf("stat test directory %q: %w", absDir, err)
	}
	if !info.IsDir() {
		return nil, &NotFoundError{Dir: absDir, Reason: "not a directory"}
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read test directory %q: %w", absDir, err)
	}

	var names []string
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ext) {
			continue
		}
		if !isRegularFile(absDir, entry) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	scripts := make([]types.ScriptFile, 0, len(names))
	for _, name := range names {
		scripts = append(scripts, types.NewScriptFile(filepath.Join(absDir, name)))
	}
	return scripts, nil
}

// isRegularFile follows symlinks so linked scripts are still picked up
func isRegularFile(dir string, entry os.DirEntry) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, entry.Name()))
	return err == nil && info.Mode().IsRegular()
}
