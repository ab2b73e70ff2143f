package numbering

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/invoicer/internal/clock"
	"github.com/smallbiznis/invoicer/internal/invoice/format"
	"go.uber.org/zap"
)

// Recorder receives one call per generated number.
type Recorder interface {
	RecordNumberGenerated(category, strategy string, degraded bool)
}

// Dependencies are the collaborators a Generator consults. Sequence and
// Store may be nil; the matching strategies then report themselves unavailable.
type Dependencies struct {
	Sequence SequenceService
	Store    NumberStore
	Clock    clock.Clock
	Location *time.Location
	Log      *zap.Logger
	Recorder Recorder
}

// Generated is a produced invoice number and how it was obtained.
type Generated struct {
	Number   string `json:"invoice_number"`
	Pattern  string `json:"pattern"`
	Sequence int64  `json:"sequence"`
	Strategy string `json:"strategy"`
	// Degraded is set when the number did not come from the atomic sequence.
	Degraded bool `json:"degraded"`
}

// Generator builds invoice numbers from an immutable Config.
// It is safe for concurrent use.
type Generator struct {
	cfg      Config
	chain    Chain
	clock    clock.Clock
	loc      *time.Location
	store    NumberStore
	log      *zap.Logger
	recorder Recorder
}

// NewGenerator validates cfg and wires the atomic, scan and clock strategies in that order.
func NewGenerator(cfg Config, deps Dependencies) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := deps.Clock
	if c == nil {
		c = clock.New()
	}
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &Generator{
		cfg: cfg,
		chain: Chain{
			atomicStrategy{seq: deps.Sequence},
			scanStrategy{store: deps.Store},
			clockStrategy{},
		},
		clock:    c,
		loc:      loc,
		store:    deps.Store,
		log:      log.Named("invoice.numbering"),
		recorder: deps.Recorder,
	}, nil
}

func (g *Generator) Config() Config {
	return g.cfg
}

// Pattern is the shared, sequence-less part of numbers for category at t.
func (g *Generator) Pattern(category Category, t time.Time) string {
	return format.Pattern(g.cfg.Prefix, g.cfg.Separator, g.code(category), t.In(g.loc), g.cfg.DateGranularity)
}

// Generate produces a number for category. It never fails: when the atomic
// sequence and the store scan both fail, a clock-derived suffix is used and
// the result is flagged Degraded.
func (g *Generator) Generate(ctx context.Context, category Category) Generated {
	return g.generate(ctx, category, nil)
}

// GenerateAfter produces a replacement for taken, a number the unique index
// rejected. A scanned replacement always lands past taken's sequence.
func (g *Generator) GenerateAfter(ctx context.Context, category Category, taken Generated) Generated {
	return g.generate(ctx, category, &taken)
}

func (g *Generator) generate(ctx context.Context, category Category, taken *Generated) Generated {
	now := g.clock.Now()
	pattern := g.Pattern(category, now)

	attempt := Attempt{
		Pattern:        pattern,
		SequenceLength: g.cfg.SequenceLength,
		Now:            now,
	}
	if taken != nil && taken.Pattern == pattern && taken.Strategy == StrategyScan {
		attempt.After = taken.Sequence
	}

	out, failures := g.chain.Run(ctx, attempt)
	if out.Number == "" {
		// Only reachable with an empty chain; keep the caller moving.
		out, _ = clockStrategy{}.Attempt(ctx, Attempt{Pattern: pattern, Now: now})
		out.Strategy = StrategyClock
	}

	for _, err := range failures {
		var se *StrategyError
		if errors.As(err, &se) && errors.Is(se.Err, ErrSequenceUnavailable) {
			g.log.Debug("atomic sequence not configured", zap.String("pattern", pattern))
			continue
		}
		g.log.Warn("invoice number strategy failed",
			zap.String("pattern", pattern),
			zap.Error(err),
		)
	}

	generated := Generated{
		Number:   out.Number,
		Pattern:  pattern,
		Sequence: out.Sequence,
		Strategy: out.Strategy,
		Degraded: out.Strategy != StrategyAtomic,
	}
	if out.Strategy == StrategyClock {
		g.log.Warn("invoice number uniqueness not guaranteed",
			zap.String("invoice_number", generated.Number),
			zap.Error(ErrDegradedUniqueness),
		)
	}
	if g.recorder != nil {
		g.recorder.RecordNumberGenerated(string(category), generated.Strategy, generated.Degraded)
	}
	return generated
}

// Preview formats the number category would get with sequence 1.
// It never touches the sequence service or the store.
func (g *Generator) Preview(category Category) string {
	pattern := g.Pattern(category, g.clock.Now())
	return pattern + format.PadSequence(1, g.cfg.SequenceLength)
}

// ValidateUniqueness reports whether candidate is unused. A non-nil error
// means the answer is unknown, not that the candidate is taken.
func (g *Generator) ValidateUniqueness(ctx context.Context, candidate string) (bool, error) {
	if g.store == nil {
		return false, ErrStoreUnavailable
	}
	exists, err := g.store.InvoiceNumberExists(ctx, candidate)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// code falls back to the client code for unknown categories so generation
// still yields a well-formed number; callers validate with ParseCategory first.
func (g *Generator) code(category Category) string {
	if code, ok := category.Code(); ok {
		return code
	}
	g.log.Warn("unknown invoice category", zap.String("category", string(category)))
	code, _ := CategoryClient.Code()
	return code
}
