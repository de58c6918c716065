package settings

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("studio.settings")

// ChangeFunc receives the previous and the current settings.
type ChangeFunc func(previous, current Settings)

// Source owns the current settings snapshot. Reads are synchronous;
// changes are reported to the registered ChangeFuncs.
type Source struct {
	mu        sync.RWMutex
	current   Settings
	v         *viper.Viper
	listeners []ChangeFunc
}

// NewSource creates a source seeded with the defaults. If path is not
// empty the file is read through viper (any format viper understands)
// and STUDIO_* environment variables override it.
func NewSource(path string) (*Source, error) {
	v := viper.New()
	setDefaults(v, defaultSettings)
	v.SetEnvPrefix("STUDIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
		}
	}

	var cfg Settings
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}

	return &Source{current: cfg, v: v}, nil
}

func setDefaults(v *viper.Viper, s Settings) {
	v.SetDefault("editor.autoSaving", s.Editor.AutoSaving)
	v.SetDefault("editor.savingDelay", s.Editor.SavingDelay)
	v.SetDefault("governance.show.warnings", s.Governance.Show.Warnings)
	v.SetDefault("governance.show.informations", s.Governance.Show.Informations)
	v.SetDefault("governance.show.hints", s.Governance.Show.Hints)
}

// Get returns the current snapshot.
func (s *Source) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// OnChange registers fn. Listeners run synchronously in registration order.
func (s *Source) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Set replaces the snapshot and notifies listeners if anything changed.
func (s *Source) Set(next Settings) {
	s.mu.Lock()
	previous := s.current
	if previous == next {
		s.mu.Unlock()
		return
	}
	s.current = next
	listeners := append([]ChangeFunc(nil), s.listeners...)
	s.mu.Unlock()

	log.Infof("settings changed: %+v", next)
	for _, fn := range listeners {
		fn(previous, next)
	}
}

// Watch re-reads the settings file whenever it changes on disk.
func (s *Source) Watch() {
	if s.v.ConfigFileUsed() == "" {
		return
	}
	s.v.OnConfigChange(func(e fsnotify.Event) {
		var cfg Settings
		if err := s.v.Unmarshal(&cfg); err != nil {
			log.Warningf("ignoring settings change in %s: %v", e.Name, err)
			return
		}
		s.Set(cfg)
	})
	s.v.WatchConfig()
}
