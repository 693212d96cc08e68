package config

import "os"

// Settings is the per-request view of the runtime-configurable values.
// Handlers take one snapshot and pass it down instead of reading the
// environment again.
type Settings struct {
	ModelPath    string
	ModelVersion string
}

type Source interface {
	Snapshot() Settings
}

// EnvSource reads MODEL_PATH and MODEL_VERSION on every Snapshot so both can
// change without a restart. A variable that is set but empty is honored.
type EnvSource struct {
	defaults Settings
	lookup   func(string) (string, bool)
}

func NewEnvSource(defaults Settings) *EnvSource {
	if defaults.ModelPath == "" {
		defaults.ModelPath = DefaultModelPath
	}
	if defaults.ModelVersion == "" {
		defaults.ModelVersion = DefaultModelVersion
	}
	return &EnvSource{defaults: defaults, lookup: os.LookupEnv}
}

func (s *EnvSource) Snapshot() Settings {
	settings := s.defaults
	if value, ok := s.lookup(EnvModelPath); ok {
		settings.ModelPath = value
	}
	if value, ok := s.lookup(EnvModelVersion); ok {
		settings.ModelVersion = value
	}
	return settings
}

type StaticSource Settings

func (s StaticSource) Snapshot() Settings {
	return Settings(s)
}
