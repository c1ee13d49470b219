package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DependenciesFile is written by the build plugin next to the server binary:
// a JSON object from absolute project path to dependency jar paths.
const DependenciesFile = "dependencies.json"

// Dependencies maps project directories to their resolved dependency jars.
type Dependencies map[string][]string

// LoadDependencies reads dir/dependencies.json. A missing file is empty.
func LoadDependencies(dir string) (Dependencies, error) {
	path := filepath.Join(dir, DependenciesFile)
	data, err := os.ReadFile(path) // #nosec G304 -- fixed name under a trusted dir
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Dependencies{}, nil
		}
		return nil, err
	}
	var deps Dependencies
	if err := json.Unmarshal(data, &deps); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return deps, nil
}

// ExecutableDir is the directory of the running binary.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// For returns the existing dependency paths recorded for project. Windows
// keys carry an upper-case drive letter.
func (d Dependencies) For(project string) []string {
	key := project
	if abs, err := filepath.Abs(project); err == nil {
		key = abs
	}
	if key != "" && key[0] != '/' {
		key = strings.ToUpper(key[:1]) + key[1:]
	}
	var out []string
	for _, p := range d[key] {
		if exists(p) {
			out = append(out, p)
		}
	}
	return out
}

// DependencySources is the dependency classpath of project as recorded next
// to the running binary.
func DependencySources(project string) []string {
	dir, err := ExecutableDir()
	if err != nil {
		return nil
	}
	deps, err := LoadDependencies(dir)
	if err != nil {
		return nil
	}
	return deps.For(project)
}
