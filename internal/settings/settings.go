// Package settings holds the user preferences of the language server. They
// live in $XDG_CONFIG_HOME/dtolsp/settings.toml and are merged with whatever
// the client sends in initializationOptions or didChangeConfiguration.
package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// PropsSpaceLine controls blank lines between props when formatting.
type PropsSpaceLine string

const (
	SpaceAlways        PropsSpaceLine = "always"
	SpaceNever         PropsSpaceLine = "never"
	SpaceHasAnnotation PropsSpaceLine = "has_annotation"
)

func (p PropsSpaceLine) Valid() bool {
	switch p {
	case SpaceAlways, SpaceNever, SpaceHasAnnotation:
		return true
	}
	return false
}

type Formatting struct {
	PropsSpaceLine PropsSpaceLine `toml:"props_space_line" json:"propsSpaceLine"`
}

// Classpath toggles the discovery strategies of the workspace.
type Classpath struct {
	FindBuilder       bool `toml:"find_builder" json:"findBuilder"`
	FindConfiguration bool `toml:"find_configuration" json:"findConfiguration"`
	FindOtherProject  bool `toml:"find_other_project" json:"findOtherProject"`
}

type Settings struct {
	Formatting Formatting `toml:"formatting" json:"formatting"`
	Classpath  Classpath  `toml:"classpath" json:"classpath"`
}

func Default() Settings {
	return Settings{
		Formatting: Formatting{PropsSpaceLine: SpaceHasAnnotation},
		Classpath:  Classpath{FindBuilder: true, FindConfiguration: true, FindOtherProject: true},
	}
}

// ErrInvalid wraps values that fail validation.
var ErrInvalid = errors.New("invalid settings")

// Path is the settings file location for app.
func Path(app string) (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error
		if dir, err = os.UserConfigDir(); err != nil {
			return "", fmt.Errorf("locate config dir: %w", err)
		}
	}
	return filepath.Join(dir, app, "settings.toml"), nil
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Settings, error) {
	s := Default()
	var raw Settings
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if meta.IsDefined("formatting", "props_space_line") {
		s.Formatting.PropsSpaceLine = raw.Formatting.PropsSpaceLine
	}
	if meta.IsDefined("classpath", "find_builder") {
		s.Classpath.FindBuilder = raw.Classpath.FindBuilder
	}
	if meta.IsDefined("classpath", "find_configuration") {
		s.Classpath.FindConfiguration = raw.Classpath.FindConfiguration
	}
	if meta.IsDefined("classpath", "find_other_project") {
		s.Classpath.FindOtherProject = raw.Classpath.FindOtherProject
	}
	if err := s.Validate(); err != nil {
		return Default(), fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func (s Settings) Validate() error {
	if !s.Formatting.PropsSpaceLine.Valid() {
		return fmt.Errorf("%w: formatting.props_space_line %q", ErrInvalid, s.Formatting.PropsSpaceLine)
	}
	return nil
}

// Save writes s to path, creating the directory.
func Save(path string, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// clientSettings mirrors what editors send; every field is optional. Both the
// bare shape and one nested under "jimmer" or "dtolsp" are accepted.
type clientSettings struct {
	Formatting *struct {
		PropsSpaceLine *PropsSpaceLine `json:"propsSpaceLine"`
	} `json:"formatting"`
	Classpath *struct {
		FindBuilder       *bool `json:"findBuilder"`
		FindConfiguration *bool `json:"findConfiguration"`
		FindOtherProject  *bool `json:"findOtherProject"`
	} `json:"classpath"`
}

// Merge applies client-sent JSON onto s. Unknown or invalid values are
// ignored; the second result reports whether anything changed.
func (s Settings) Merge(raw json.RawMessage) (Settings, bool) {
	if len(raw) == 0 {
		return s, false
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return s, false
	}
	for _, key := range []string{"jimmer", "dtolsp", "jimmerDto"} {
		if inner, ok := wrapper[key]; ok {
			raw = inner
			break
		}
	}
	var cs clientSettings
	if err := json.Unmarshal(raw, &cs); err != nil {
		return s, false
	}
	out := s
	if f := cs.Formatting; f != nil && f.PropsSpaceLine != nil && f.PropsSpaceLine.Valid() {
		out.Formatting.PropsSpaceLine = *f.PropsSpaceLine
	}
	if c := cs.Classpath; c != nil {
		if c.FindBuilder != nil {
			out.Classpath.FindBuilder = *c.FindBuilder
		}
		if c.FindConfiguration != nil {
			out.Classpath.FindConfiguration = *c.FindConfiguration
		}
		if c.FindOtherProject != nil {
			out.Classpath.FindOtherProject = *c.FindOtherProject
		}
	}
	return out, out != s
}
