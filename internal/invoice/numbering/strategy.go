package numbering

import (
	"context"
	"strconv"
	"time"

	"github.com/smallbiznis/invoicer/internal/invoice/format"
)

const (
	StrategyAtomic = "atomic"
	StrategyScan   = "scan"
	StrategyClock  = "clock"

	clockSuffixDigits = 6
)

// SequenceService hands out the next value for a pattern atomically.
type SequenceService interface {
	NextSequence(ctx context.Context, pattern string) (int64, error)
}

// NumberStore reads invoice numbers that were already issued.
type NumberStore interface {
	// FindInvoiceNumbersWithPrefix returns numbers starting with prefix,
	// sorted descending lexicographically.
	FindInvoiceNumbersWithPrefix(ctx context.Context, prefix string, limit int) ([]string, error)
	InvoiceNumberExists(ctx context.Context, number string) (bool, error)
}

// Attempt is the input shared by every strategy for one generation.
type Attempt struct {
	Pattern        string
	SequenceLength int
	Now            time.Time
	// After is a sequence already known to be taken; scanning never returns
	// it or anything below it.
	After int64
}

// Outcome is what a successful strategy produced.
type Outcome struct {
	Number   string
	Sequence int64
	Strategy string
}

// Strategy is one way of turning a pattern into a full invoice number.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, a Attempt) (Outcome, error)
}

// Chain tries strategies in order and stops at the first success.
type Chain []Strategy

// Run returns the first outcome and the failures that preceded it.
func (c Chain) Run(ctx context.Context, a Attempt) (Outcome, []error) {
	var failures []error
	for _, s := range c {
		out, err := s.Attempt(ctx, a)
		if err == nil {
			out.Strategy = s.Name()
			return out, failures
		}
		failures = append(failures, &StrategyError{Strategy: s.Name(), Err: err})
	}
	return Outcome{}, append(failures, ErrStrategiesExhausted)
}

type atomicStrategy struct {
	seq SequenceService
}

func (atomicStrategy) Name() string { return StrategyAtomic }

func (s atomicStrategy) Attempt(ctx context.Context, a Attempt) (Outcome, error) {
	if s.seq == nil {
		return Outcome{}, ErrSequenceUnavailable
	}
	next, err := s.seq.NextSequence(ctx, a.Pattern)
	if err != nil {
		return Outcome{}, err
	}
	if next <= 0 {
		next = 1
	}
	return sequenced(a, next)
}

// scanStrategy derives the next value from the highest stored number.
// Two callers racing on the same pattern can compute the same value; the
// unique index on invoice_number is what rejects the loser.
type scanStrategy struct {
	store NumberStore
}

func (scanStrategy) Name() string { return StrategyScan }

func (s scanStrategy) Attempt(ctx context.Context, a Attempt) (Outcome, error) {
	if s.store == nil {
		return Outcome{}, ErrStoreUnavailable
	}
	numbers, err := s.store.FindInvoiceNumbersWithPrefix(ctx, a.Pattern, 1)
	if err != nil {
		return Outcome{}, err
	}

	next := int64(1)
	if len(numbers) > 0 {
		if last, ok := ParseSequence(numbers[0], a.Pattern); ok {
			next = last + 1
		}
	}
	if next <= a.After {
		next = a.After + 1
	}
	return sequenced(a, next)
}

type clockStrategy struct{}

func (clockStrategy) Name() string { return StrategyClock }

func (clockStrategy) Attempt(_ context.Context, a Attempt) (Outcome, error) {
	millis := strconv.FormatInt(a.Now.UnixMilli(), 10)
	if len(millis) > clockSuffixDigits {
		millis = millis[len(millis)-clockSuffixDigits:]
	}
	seq, _ := strconv.ParseInt(millis, 10, 64)
	return Outcome{
		Number:   a.Pattern + millis,
		Sequence: seq,
	}, nil
}

func sequenced(a Attempt, seq int64) (Outcome, error) {
	number, err := format.FormatInvoiceNumber(a.Pattern, seq, a.SequenceLength)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Number: number, Sequence: seq}, nil
}

// ParseSequence returns the numeric suffix of number after pattern.
func ParseSequence(number, pattern string) (int64, bool) {
	return format.TrailingSequence(number, pattern)
}
