// Package config defines the configuration of the skeletal tracking application and how it is
// read from disk and overridden from the command line.
package config

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
	"go.uber.org/multierr"

	"go.viam.com/skeletal/components/camera"
	"go.viam.com/skeletal/display"
	"go.viam.com/skeletal/logging"
	"go.viam.com/skeletal/pose"
	"go.viam.com/skeletal/tof"
	"go.viam.com/skeletal/tracking"
)

// A Config describes everything the application needs to run.
type Config struct {
	Camera     camera.SessionConfig          `json:"camera"`
	Normalizer tof.Config                    `json:"normalizer"`
	Pose       pose.Config                   `json:"pose"`
	Display    display.Config                `json:"display"`
	Tracking   tracking.Config               `json:"tracking"`
	Log        []logging.LoggerPatternConfig `json:"log,omitempty"`

	// ConfigFilePath is the file this config was read from, if any.
	ConfigFilePath string `json:"-"`
}

// Default returns a config that talks to a camera at its factory address and opens a window.
func Default() *Config {
	return &Config{
		Camera:     camera.DefaultSessionConfig(),
		Normalizer: tof.DefaultConfig(),
		Pose:       pose.DefaultConfig(),
		Display:    display.DefaultConfig(),
		Tracking:   tracking.DefaultConfig(),
	}
}

// Read reads a JSON5 config file on top of the defaults. Environment variables in the file are
// expanded first.
func Read(filePath string) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config file %q", filePath)
	}
	cfg, err := FromBytes(buf)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot parse config file %q", filePath)
	}
	cfg.ConfigFilePath = filePath
	return cfg, nil
}

// FromBytes parses JSON5 on top of the defaults. Fields missing from data keep their default.
func FromBytes(data []byte) (*Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides applies command line arguments of the form key=value, where key is a dotted
// path such as camera.mode or normalizer.max_range. A bare argument ending in .json names the
// camera initialization file. Values are parsed according to the type of the setting they replace,
// so camera.uri=ip:10.42.0.1 stays text and normalizer.max_range=4000 becomes a number.
func (cfg *Config) ApplyOverrides(args []string) error {
	if len(args) == 0 {
		return nil
	}
	for _, arg := range args {
		if !strings.Contains(arg, "=") && strings.HasSuffix(strings.ToLower(arg), ".json") {
			cfg.Camera.ConfigPath = arg
			continue
		}
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return errors.Errorf("expected key=value or a .json file, got %q", arg)
		}
		if err := cfg.set(key, value); err != nil {
			return errors.Wrapf(err, "cannot apply %q", arg)
		}
	}
	return nil
}

func (cfg *Config) set(key, value string) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(raw, &tree); err != nil {
		return err
	}

	path := strings.Split(key, ".")
	node := tree
	for i, part := range path[:len(path)-1] {
		child, ok := node[part].(map[string]interface{})
		if !ok {
			return errors.Errorf("unknown config section %q", strings.Join(path[:i+1], "."))
		}
		node = child
	}
	leaf := path[len(path)-1]
	old, ok := node[leaf]
	if !ok {
		return errors.Errorf("unknown config key %q", key)
	}
	if _, isSection := old.(map[string]interface{}); isSection {
		return errors.Errorf("%q is a section, not a value", key)
	}
	parsed, err := parseValue(old, value)
	if err != nil {
		return err
	}
	node[leaf] = parsed

	raw, err = json.Marshal(tree)
	if err != nil {
		return err
	}
	updated := *cfg
	// decoding reuses slice storage, so give the copy its own
	updated.Log = nil
	if err := json.Unmarshal(raw, &updated); err != nil {
		return err
	}
	*cfg = updated
	return nil
}

// parseValue converts value to the kind of the JSON leaf it replaces.
func parseValue(old interface{}, value string) (interface{}, error) {
	switch old.(type) {
	case string:
		return value, nil
	case float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, errors.Errorf("expected a number, got %q", value)
		}
		return f, nil
	case bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, errors.Errorf("expected true or false, got %q", value)
		}
		return b, nil
	case []interface{}:
		var list []interface{}
		if err := json.Unmarshal([]byte(value), &list); err != nil {
			return nil, errors.Wrapf(err, "expected a JSON list, got %q", value)
		}
		return list, nil
	default:
		var parsed interface{}
		if err := json.Unmarshal([]byte(value), &parsed); err != nil {
			return value, nil
		}
		return parsed, nil
	}
}

// Validate ensures all parts of the config are valid and reports every problem at once.
func (cfg *Config) Validate() error {
	var err error
	for _, section := range []struct {
		name     string
		validate func() error
	}{
		{"camera", cfg.Camera.Validate},
		{"normalizer", cfg.Normalizer.Validate},
		{"pose", cfg.Pose.Validate},
		{"display", cfg.Display.Validate},
		{"tracking", cfg.Tracking.Validate},
	} {
		if sectionErr := section.validate(); sectionErr != nil {
			err = multierr.Append(err, errors.Wrap(sectionErr, section.name))
		}
	}
	for _, lpc := range cfg.Log {
		if _, levelErr := logging.LevelFromString(lpc.Level); levelErr != nil {
			err = multierr.Append(err, errors.Wrapf(levelErr, "log pattern %q", lpc.Pattern))
		}
	}
	return err
}
