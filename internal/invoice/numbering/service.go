package numbering

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

// Service serves numbering requests from the generator built for the
// current settings and swaps it whenever the settings change.
type Service struct {
	settings *SettingsStore
	deps     Dependencies
	log      *zap.Logger
	current  atomic.Pointer[Generator]
}

func NewService(settings *SettingsStore, deps Dependencies) (*Service, error) {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	gen, err := NewGenerator(settings.Get(), deps)
	if err != nil {
		return nil, err
	}

	s := &Service{
		settings: settings,
		deps:     deps,
		log:      log.Named("invoice.numbering.service"),
	}
	s.current.Store(gen)
	settings.OnChange(s.rebuild)
	return s, nil
}

func (s *Service) rebuild(cfg Config) {
	gen, err := NewGenerator(cfg, s.deps)
	if err != nil {
		s.log.Warn("numbering generator not rebuilt", zap.Error(err))
		return
	}
	s.current.Store(gen)
}

// Generator returns the generator for the current settings.
func (s *Service) Generator() *Generator {
	return s.current.Load()
}

func (s *Service) Generate(ctx context.Context, category Category) Generated {
	return s.Generator().Generate(ctx, category)
}

func (s *Service) GenerateAfter(ctx context.Context, category Category, taken Generated) Generated {
	return s.Generator().GenerateAfter(ctx, category, taken)
}

func (s *Service) Preview(category Category) string {
	return s.Generator().Preview(category)
}

// PreviewWith previews category under an unsaved cfg.
func (s *Service) PreviewWith(cfg Config, category Category) (string, error) {
	gen, err := NewGenerator(cfg, Dependencies{
		Clock:    s.deps.Clock,
		Location: s.deps.Location,
		Log:      s.deps.Log,
	})
	if err != nil {
		return "", err
	}
	return gen.Preview(category), nil
}

func (s *Service) ValidateUniqueness(ctx context.Context, candidate string) (bool, error) {
	return s.Generator().ValidateUniqueness(ctx, candidate)
}

func (s *Service) Settings() Config {
	return s.settings.Get()
}

func (s *Service) SaveSettings(cfg Config) error {
	return s.settings.Save(cfg)
}
