package numbering

import (
	"context"

	"github.com/smallbiznis/invoicer/internal/clock"
	"github.com/smallbiznis/invoicer/internal/config"
	"github.com/smallbiznis/invoicer/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("invoice.numbering",
	fx.Provide(newSettingsStore),
	fx.Provide(newService),
	fx.Invoke(watchSettings),
)

type Params struct {
	fx.In

	Config   config.Config
	Log      *zap.Logger
	Clock    clock.Clock
	Store    NumberStore
	Sequence SequenceService  `optional:"true"`
	Metrics  *metrics.Metrics `optional:"true"`
}

func newSettingsStore(cfg config.Config, log *zap.Logger) (*SettingsStore, error) {
	return NewSettingsStore(cfg.Invoice.NumberingFile, log)
}

func newService(p Params, settings *SettingsStore) (*Service, error) {
	return NewService(settings, Dependencies{
		Sequence: p.Sequence,
		Store:    p.Store,
		Clock:    p.Clock,
		Location: p.Config.Invoice.Location(),
		Log:      p.Log,
		Recorder: p.Metrics,
	})
}

func watchSettings(lc fx.Lifecycle, settings *SettingsStore) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			settings.Watch()
			return nil
		},
	})
}
