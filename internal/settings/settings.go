// Package settings holds the user-facing studio settings and the source
// that delivers them to the editor core.
package settings

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"time"
)

type Settings struct {
	Editor     Editor     `json:"editor"     mapstructure:"editor"`
	Governance Governance `json:"governance" mapstructure:"governance"`
}

type Editor struct {
	AutoSaving bool `json:"autoSaving"  mapstructure:"autoSaving"`
	// SavingDelay is the debounce window in milliseconds.
	SavingDelay int `json:"savingDelay" mapstructure:"savingDelay"`
}

// Governance controls which non-error diagnostics reach the editor.
type Governance struct {
	Show Show `json:"show" mapstructure:"show"`
}

type Show struct {
	Warnings     bool `json:"warnings"     mapstructure:"warnings"`
	Informations bool `json:"informations" mapstructure:"informations"`
	Hints        bool `json:"hints"        mapstructure:"hints"`
}

var defaultSettings = Settings{
	Editor: Editor{
		AutoSaving:  true,
		SavingDelay: 625,
	},
	Governance: Governance{
		Show: Show{
			Warnings:     true,
			Informations: true,
			Hints:        true,
		},
	},
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return defaultSettings
}

// Delay returns the debounce window, never negative.
func (s Settings) Delay() time.Duration {
	if s.Editor.SavingDelay < 0 {
		return 0
	}
	return time.Duration(s.Editor.SavingDelay) * time.Millisecond
}

// GovernanceChanged reports whether the governance subtree differs between a and b.
func GovernanceChanged(a, b Settings) bool {
	return !reflect.DeepEqual(a.Governance, b.Governance)
}

// Load overlays v onto base. Only fields present in v overwrite.
func Load(base Settings, v any) (Settings, error) {
	if v == nil {
		return base, nil
	}
	cfg := base

	data, err := json.Marshal(v)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to marshal source: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return Settings{}, fmt.Errorf("failed to unmarshal into Settings: %w", err)
	}

	return cfg, nil
}

// Decode reads a JSON settings document from r on top of base. Unknown
// fields are rejected.
func Decode(base Settings, r io.Reader) (Settings, error) {
	cfg := base

	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	if cfg.Editor.SavingDelay < 0 {
		return Settings{}, fmt.Errorf("savingDelay must not be negative: %d", cfg.Editor.SavingDelay)
	}

	return cfg, nil
}
