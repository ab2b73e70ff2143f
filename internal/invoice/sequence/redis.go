package sequence

import (
	"context"
	"errors"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/invoicer/internal/invoice/numbering"
)

const defaultKeyPrefix = "invoicer:invoice_seq:"

// incrIfPresent returns -1 when the counter has not been seeded yet.
const incrIfPresentScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return redis.call("INCR", KEYS[1])
end
return -1
`

// seedAndIncr seeds the counter unless another caller already did, then increments.
const seedAndIncrScript = `
redis.call("SETNX", KEYS[1], ARGV[1])
return redis.call("INCR", KEYS[1])
`

// RedisSequence keeps one INCR counter per pattern. A missing counter is
// seeded from the highest sequence already stored for that pattern.
type RedisSequence struct {
	client    *redis.Client
	store     numbering.NumberStore
	keyPrefix string
	incr      *redis.Script
	seed      *redis.Script
}

func NewRedisSequence(client *redis.Client, store numbering.NumberStore) *RedisSequence {
	return &RedisSequence{
		client:    client,
		store:     store,
		keyPrefix: defaultKeyPrefix,
		incr:      redis.NewScript(incrIfPresentScript),
		seed:      redis.NewScript(seedAndIncrScript),
	}
}

func (s *RedisSequence) NextSequence(ctx context.Context, pattern string) (int64, error) {
	if s == nil || s.client == nil {
		return 0, numbering.ErrSequenceUnavailable
	}
	if strings.TrimSpace(pattern) == "" {
		return 0, errors.New("sequence pattern is empty")
	}

	key := s.keyPrefix + pattern
	next, err := s.incr.Run(ctx, s.client, []string{key}).Int64()
	if err != nil {
		return 0, err
	}
	if next > 0 {
		return next, nil
	}

	floor, err := LastIssued(ctx, s.store, pattern)
	if err != nil {
		return 0, err
	}
	return s.seed.Run(ctx, s.client, []string{key}, floor).Int64()
}

// LastIssued returns the highest sequence stored for pattern, or 0.
func LastIssued(ctx context.Context, store numbering.NumberStore, pattern string) (int64, error) {
	if store == nil {
		return 0, nil
	}
	numbers, err := store.FindInvoiceNumbersWithPrefix(ctx, pattern, seedScanLimit)
	if err != nil {
		return 0, err
	}

	var last int64
	for _, n := range numbers {
		if seq, ok := numbering.ParseSequence(n, pattern); ok && seq > last {
			last = seq
		}
	}
	return last, nil
}

const seedScanLimit = 500
