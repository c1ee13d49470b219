package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"
)

// ProjectConfigFile is the optional per-project configuration.
const ProjectConfigFile = "dtolsp.toml"

// ProjectConfig is the [index] section of dtolsp.toml.
type ProjectConfig struct {
	Exclude        []string `toml:"exclude"`
	ExtraClasspath []string `toml:"extra_classpath"`
	ExtraSources   []string `toml:"extra_sources"`
	VerifyBackends bool     `toml:"verify_backends"`

	excludes []glob.Glob
}

type projectConfigFile struct {
	Index ProjectConfig `toml:"index"`
}

// LoadProjectConfig reads dir/dtolsp.toml. A missing file is the zero config.
// Relative extra paths are resolved against dir.
func LoadProjectConfig(dir string) (*ProjectConfig, error) {
	path := filepath.Join(dir, ProjectConfigFile)
	var raw projectConfigFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &ProjectConfig{}, nil
		}
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	cfg := raw.Index
	cfg.ExtraClasspath = absAll(dir, cfg.ExtraClasspath)
	cfg.ExtraSources = absAll(dir, cfg.ExtraSources)
	for _, pattern := range cfg.Exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("%s: exclude %q: %w", path, pattern, err)
		}
		cfg.excludes = append(cfg.excludes, g)
	}
	return &cfg, nil
}

func absAll(dir string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, filepath.FromSlash(p))
		}
		out = append(out, filepath.Clean(p))
	}
	return out
}

// Excluded reports whether the slash-separated path relative to the project
// matches an exclude pattern. A pattern also excludes everything below a
// matching directory.
func (c *ProjectConfig) Excluded(rel string) bool {
	if c == nil || len(c.excludes) == 0 {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, g := range c.excludes {
		for p := rel; p != "." && p != "/" && p != ""; p = parentOf(p) {
			if g.Match(p) {
				return true
			}
		}
	}
	return false
}

func parentOf(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return ""
	}
	return p[:i]
}

// filterRoots drops roots excluded relative to project.
func (c *ProjectConfig) filterRoots(project string, roots []string) []string {
	out := roots[:0:0]
	for _, r := range roots {
		rel, err := filepath.Rel(project, r)
		if err == nil && !strings.HasPrefix(rel, "..") && c.Excluded(rel) {
			continue
		}
		out = append(out, r)
	}
	return out
}
