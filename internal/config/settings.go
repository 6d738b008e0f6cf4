// Package config loads agent settings and MCP server definitions from
// files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Settings is the merged content of the settings files. Files are YAML or
// JSON; string values may reference ${VAR} environment variables.
type Settings struct {
	Model             string         `yaml:"model"`
	FallbackModel     string         `yaml:"fallbackModel"`
	SystemPrompt      string         `yaml:"systemPrompt"`
	MaxTurns          int            `yaml:"maxTurns"`
	MaxConcurrency    int            `yaml:"maxConcurrency"`
	InvocationTimeout Duration       `yaml:"invocationTimeout"`
	DisabledTools     []string       `yaml:"disabledTools"`
	Sandbox           *Sandbox       `yaml:"sandbox"`
	Custom            map[string]any `yaml:"custom"`
}

// Sandbox limits the paths and commands of the built-in tools.
type Sandbox struct {
	AllowedDirs     []string `yaml:"allowedDirs"`
	BlockedCommands []string `yaml:"blockedCommands"`
}

// LoadSettings merges the settings files at paths, later files winning
// field by field. Missing files are skipped. A malformed file is reported
// in the returned error and the remaining files still merge.
func LoadSettings(paths ...string) (*Settings, error) {
	merged := &Settings{Custom: make(map[string]any)}
	var errs []error
	for _, path := range paths {
		s, err := loadSettingsFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		merged.merge(s)
	}
	return merged, errors.Join(errs...)
}

// DefaultSettingsPaths returns the settings search paths in merge order:
// user, project, then the uncommitted local project file.
func DefaultSettingsPaths(projectDir string) []string {
	var paths []string
	if home, _ := os.UserHomeDir(); home != "" {
		paths = append(paths, filepath.Join(home, ".agentctl", "settings.json"))
	}
	if projectDir != "" {
		paths = append(paths,
			filepath.Join(projectDir, ".agentctl", "settings.json"),
			filepath.Join(projectDir, ".agentctl", "settings.local.json"),
		)
	}
	return paths
}

func loadSettingsFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	s.Model = ExpandEnv(s.Model)
	s.FallbackModel = ExpandEnv(s.FallbackModel)
	s.SystemPrompt = ExpandEnv(s.SystemPrompt)
	if s.Sandbox != nil {
		for i, dir := range s.Sandbox.AllowedDirs {
			s.Sandbox.AllowedDirs[i] = ExpandEnv(dir)
		}
	}
	return &s, nil
}

func (s *Settings) merge(src *Settings) {
	if src.Model != "" {
		s.Model = src.Model
	}
	if src.FallbackModel != "" {
		s.FallbackModel = src.FallbackModel
	}
	if src.SystemPrompt != "" {
		s.SystemPrompt = src.SystemPrompt
	}
	if src.MaxTurns > 0 {
		s.MaxTurns = src.MaxTurns
	}
	if src.MaxConcurrency > 0 {
		s.MaxConcurrency = src.MaxConcurrency
	}
	if src.InvocationTimeout > 0 {
		s.InvocationTimeout = src.InvocationTimeout
	}
	if len(src.DisabledTools) > 0 {
		s.DisabledTools = src.DisabledTools
	}
	if src.Sandbox != nil {
		s.Sandbox = src.Sandbox
	}
	for k, v := range src.Custom {
		s.Custom[k] = v
	}
}
