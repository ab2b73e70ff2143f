package numbering

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const settingsKey = "numbering"

// SettingsStore keeps the numbering Config in a YAML file and reloads it on change.
type SettingsStore struct {
	path string
	v    *viper.Viper
	log  *zap.Logger

	current   atomic.Pointer[Config]
	mu        sync.Mutex
	listeners []func(Config)
	watchOnce sync.Once
}

// NewSettingsStore loads path, falling back to DefaultConfig when the file is absent.
func NewSettingsStore(path string, log *zap.Logger) (*SettingsStore, error) {
	if log == nil {
		log = zap.NewNop()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v, DefaultConfig())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := decode(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &SettingsStore{
		path: path,
		v:    v,
		log:  log.Named("invoice.numbering.settings"),
	}
	s.current.Store(&cfg)
	return s, nil
}

func (s *SettingsStore) Get() Config {
	return *s.current.Load()
}

func (s *SettingsStore) Path() string {
	return s.path
}

// OnChange registers fn to run after every accepted change.
func (s *SettingsStore) OnChange(fn func(Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Save validates cfg, writes it to disk and makes it current.
func (s *SettingsStore) Save(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	w := viper.New()
	w.SetConfigType("yaml")
	w.Set(settingsKey+".prefix", cfg.Prefix)
	w.Set(settingsKey+".separator", cfg.Separator)
	w.Set(settingsKey+".sequenceLength", cfg.SequenceLength)
	w.Set(settingsKey+".dateGranularity", string(cfg.DateGranularity))
	if err := w.WriteConfigAs(s.path); err != nil {
		return err
	}

	s.apply(cfg)
	s.log.Info("numbering settings saved", zap.String("path", s.path))
	return nil
}

// Watch starts hot reloading. Invalid edits are logged and ignored.
func (s *SettingsStore) Watch() {
	s.watchOnce.Do(func() {
		s.v.OnConfigChange(func(e fsnotify.Event) {
			updated := decode(s.v)
			if err := updated.Validate(); err != nil {
				s.log.Warn("invalid numbering settings ignored", zap.Error(err))
				return
			}
			if updated == s.Get() {
				return
			}
			s.apply(updated)
			s.log.Info("numbering settings reloaded", zap.String("file", e.Name))
		})
		s.v.WatchConfig()
	})
}

func (s *SettingsStore) apply(cfg Config) {
	s.current.Store(&cfg)

	s.mu.Lock()
	listeners := append([]func(Config){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(cfg)
	}
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault(settingsKey+".prefix", cfg.Prefix)
	v.SetDefault(settingsKey+".separator", cfg.Separator)
	v.SetDefault(settingsKey+".sequenceLength", cfg.SequenceLength)
	v.SetDefault(settingsKey+".dateGranularity", string(cfg.DateGranularity))
}

// decode reads each key on its own so a partial file still picks up defaults
// for the keys it omits.
func decode(v *viper.Viper) Config {
	return Config{
		Prefix:          v.GetString(settingsKey + ".prefix"),
		Separator:       v.GetString(settingsKey + ".separator"),
		SequenceLength:  v.GetInt(settingsKey + ".sequenceLength"),
		DateGranularity: DateGranularity(v.GetString(settingsKey + ".dateGranularity")),
	}
}
