package sequence

import (
	"context"
	"errors"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/invoicer/internal/config"
	"github.com/smallbiznis/invoicer/internal/invoice/numbering"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("invoice.sequence",
	fx.Provide(New),
)

type Params struct {
	fx.In

	Lc     fx.Lifecycle
	Config config.Config
	DB     *gorm.DB
	Store  numbering.NumberStore
	Log    *zap.Logger
}

// New selects the atomic sequence backend. It returns a nil service for the
// "none" backend, which leaves numbering on its fallback strategies.
func New(p Params) (numbering.SequenceService, error) {
	log := p.Log.Named("invoice.sequence")

	switch p.Config.Invoice.SequenceBackend {
	case config.SequenceBackendPostgres:
		if p.Config.DBType != "postgres" {
			return nil, errors.New("postgres sequence backend requires DATABASE_TYPE=postgres")
		}
		log.Info("using postgres invoice sequence")
		return NewPostgresSequence(p.DB), nil

	case config.SequenceBackendRedis:
		if p.Config.Redis.Addr == "" {
			return nil, errors.New("redis sequence backend requires REDIS_ADDR")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     p.Config.Redis.Addr,
			Password: p.Config.Redis.Password,
			DB:       p.Config.Redis.DB,
		})
		p.Lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := client.Ping(ctx).Err(); err != nil {
					log.Warn("redis unreachable, numbering will fall back", zap.Error(err))
				}
				return nil
			},
			OnStop: func(context.Context) error {
				return client.Close()
			},
		})
		log.Info("using redis invoice sequence", zap.String("addr", p.Config.Redis.Addr))
		return NewRedisSequence(client, p.Store), nil

	default:
		log.Warn("no atomic invoice sequence configured, numbers are derived from stored invoices")
		return nil, nil
	}
}
