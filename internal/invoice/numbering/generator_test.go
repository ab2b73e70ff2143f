package numbering

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/smallbiznis/invoicer/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSequence struct {
	mock.Mock
}

func (m *mockSequence) NextSequence(ctx context.Context, pattern string) (int64, error) {
	args := m.Called(ctx, pattern)
	return args.Get(0).(int64), args.Error(1)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) FindInvoiceNumbersWithPrefix(ctx context.Context, prefix string, limit int) ([]string, error) {
	args := m.Called(ctx, prefix, limit)
	numbers, _ := args.Get(0).([]string)
	return numbers, args.Error(1)
}

func (m *mockStore) InvoiceNumberExists(ctx context.Context, number string) (bool, error) {
	args := m.Called(ctx, number)
	return args.Bool(0), args.Error(1)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordNumberGenerated(category, strategy string, degraded bool) {
	m.Called(category, strategy, degraded)
}

var issuedAt = time.Date(2025, 7, 5, 10, 0, 0, 0, time.UTC)

func newTestGenerator(t *testing.T, cfg Config, seq SequenceService, store NumberStore) *Generator {
	t.Helper()
	gen, err := NewGenerator(cfg, Dependencies{
		Sequence: seq,
		Store:    store,
		Clock:    clock.NewFakeClock(issuedAt),
		Location: time.UTC,
		Log:      zap.NewNop(),
	})
	require.NoError(t, err)
	return gen
}

func TestGenerateFirstNumberOfTheDay(t *testing.T) {
	store := &mockStore{}
	store.On("FindInvoiceNumbersWithPrefix", mock.Anything, "PPFI-STU250705", 1).Return([]string{}, nil)

	gen := newTestGenerator(t, DefaultConfig(), nil, store)

	got := gen.Generate(context.Background(), CategoryStudent)

	assert.Equal(t, "PPFI-STU2507050001", got.Number)
	assert.Equal(t, "PPFI-STU250705", got.Pattern)
	assert.Equal(t, int64(1), got.Sequence)
	assert.Equal(t, StrategyScan, got.Strategy)
	store.AssertExpectations(t)
}

func TestGenerateUsesAtomicSequence(t *testing.T) {
	seq := &mockSequence{}
	seq.On("NextSequence", mock.Anything, "PPFI-STU250705").Return(int64(1), nil)
	store := &mockStore{}

	gen := newTestGenerator(t, DefaultConfig(), seq, store)

	got := gen.Generate(context.Background(), CategoryStudent)

	assert.Equal(t, "PPFI-STU2507050001", got.Number)
	assert.Equal(t, StrategyAtomic, got.Strategy)
	assert.False(t, got.Degraded)
	store.AssertNotCalled(t, "FindInvoiceNumbersWithPrefix", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateNonPositiveAtomicAnswerIsOne(t *testing.T) {
	seq := &mockSequence{}
	seq.On("NextSequence", mock.Anything, "PPFI-CLI250705").Return(int64(0), nil)

	gen := newTestGenerator(t, DefaultConfig(), seq, nil)

	got := gen.Generate(context.Background(), CategoryClient)

	assert.Equal(t, "PPFI-CLI2507050001", got.Number)
	assert.Equal(t, StrategyAtomic, got.Strategy)
}

func TestGenerateFallsBackToScanWhenAtomicFails(t *testing.T) {
	seq := &mockSequence{}
	seq.On("NextSequence", mock.Anything, "PPFI-STU250705").Return(int64(0), errors.New("function missing"))
	store := &mockStore{}
	store.On("FindInvoiceNumbersWithPrefix", mock.Anything, "PPFI-STU250705", 1).
		Return([]string{"PPFI-STU2507050003"}, nil)

	gen := newTestGenerator(t, DefaultConfig(), seq, store)

	got := gen.Generate(context.Background(), CategoryStudent)

	assert.Equal(t, "PPFI-STU2507050004", got.Number)
	assert.Equal(t, int64(4), got.Sequence)
	assert.Equal(t, StrategyScan, got.Strategy)
	assert.True(t, got.Degraded)
}

func TestGenerateScanRestartsOnUnparseableSuffix(t *testing.T) {
	store := &mockStore{}
	store.On("FindInvoiceNumbersWithPrefix", mock.Anything, "PPFI-STU250705", 1).
		Return([]string{"PPFI-STU250705-draft"}, nil)

	gen := newTestGenerator(t, DefaultConfig(), nil, store)

	got := gen.Generate(context.Background(), CategoryStudent)

	assert.Equal(t, "PPFI-STU2507050001", got.Number)
}

func TestGenerateAfterStepsPastTakenScan(t *testing.T) {
	store := &mockStore{}
	store.On("FindInvoiceNumbersWithPrefix", mock.Anything, "PPFI-STU250705", 1).Return([]string{"PPFI-STU250705X"}, nil)

	gen := newTestGenerator(t, DefaultConfig(), nil, store)
	ctx := context.Background()

	first := gen.Generate(ctx, CategoryStudent)
	require.Equal(t, "PPFI-STU2507050001", first.Number)

	next := gen.GenerateAfter(ctx, CategoryStudent, first)
	assert.Equal(t, "PPFI-STU2507050002", next.Number)
	assert.Equal(t, int64(2), next.Sequence)

	// Only scanned numbers from the same pattern move the floor.
	other := first
	other.Pattern = "PPFI-STU250704"
	assert.Equal(t, "PPFI-STU2507050001", gen.GenerateAfter(ctx, CategoryStudent, other).Number)
}

func TestGenerateClockFallbackWhenEverythingFails(t *testing.T) {
	seq := &mockSequence{}
	seq.On("NextSequence", mock.Anything, mock.Anything).Return(int64(0), errors.New("db down"))
	store := &mockStore{}
	store.On("FindInvoiceNumbersWithPrefix", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("db down"))
	recorder := &mockRecorder{}
	recorder.On("RecordNumberGenerated", "student", StrategyClock, true).Return()

	gen, err := NewGenerator(DefaultConfig(), Dependencies{
		Sequence: seq,
		Store:    store,
		Clock:    clock.NewFakeClock(issuedAt),
		Location: time.UTC,
		Recorder: recorder,
	})
	require.NoError(t, err)

	got := gen.Generate(context.Background(), CategoryStudent)

	millis := strconv.FormatInt(issuedAt.UnixMilli(), 10)
	assert.Equal(t, "PPFI-STU250705"+millis[len(millis)-6:], got.Number)
	assert.Equal(t, StrategyClock, got.Strategy)
	assert.True(t, got.Degraded)
	recorder.AssertExpectations(t)
}

func TestGenerateWithYearGranularityAndNoSeparator(t *testing.T) {
	cfg := Config{
		Prefix:          "INV",
		Separator:       "",
		SequenceLength:  6,
		DateGranularity: GranularityYear,
	}
	store := &mockStore{}
	store.On("FindInvoiceNumbersWithPrefix", mock.Anything, "INVCLI25", 1).
		Return([]string{"INVCLI25000041"}, nil)

	gen := newTestGenerator(t, cfg, nil, store)

	got := gen.Generate(context.Background(), CategoryClient)

	assert.Equal(t, "INVCLI25000042", got.Number)
}

func TestGenerateUsesConfiguredLocation(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*60*60)
	late := time.Date(2025, 7, 5, 20, 0, 0, 0, time.UTC)

	gen, err := NewGenerator(DefaultConfig(), Dependencies{
		Clock:    clock.NewFakeClock(late),
		Location: loc,
	})
	require.NoError(t, err)

	assert.Equal(t, "PPFI-STU2507060001", gen.Preview(CategoryStudent))
}

func TestPreviewNeverTouchesCollaborators(t *testing.T) {
	seq := &mockSequence{}
	store := &mockStore{}
	store.On("FindInvoiceNumbersWithPrefix", mock.Anything, "PPFI-CLI250705", 1).Return([]string{}, nil)

	gen := newTestGenerator(t, DefaultConfig(), seq, store)

	preview := gen.Preview(CategoryClient)

	assert.Equal(t, "PPFI-CLI2507050001", preview)
	seq.AssertNotCalled(t, "NextSequence", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "FindInvoiceNumbersWithPrefix", mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "InvoiceNumberExists", mock.Anything, mock.Anything)

	generated := newTestGenerator(t, DefaultConfig(), nil, store).Generate(context.Background(), CategoryClient)
	assert.Equal(t, preview, generated.Number)
}

func TestValidateUniqueness(t *testing.T) {
	store := &mockStore{}
	store.On("InvoiceNumberExists", mock.Anything, "PPFI-STU2507050001").Return(true, nil)
	store.On("InvoiceNumberExists", mock.Anything, "PPFI-STU2507050002").Return(false, nil)
	store.On("InvoiceNumberExists", mock.Anything, "PPFI-STU2507050003").Return(false, errors.New("timeout"))

	gen := newTestGenerator(t, DefaultConfig(), nil, store)
	ctx := context.Background()

	unique, err := gen.ValidateUniqueness(ctx, "PPFI-STU2507050001")
	require.NoError(t, err)
	assert.False(t, unique)

	unique, err = gen.ValidateUniqueness(ctx, "PPFI-STU2507050002")
	require.NoError(t, err)
	assert.True(t, unique)

	_, err = gen.ValidateUniqueness(ctx, "PPFI-STU2507050003")
	assert.Error(t, err)
}

func TestValidateUniquenessWithoutStore(t *testing.T) {
	gen := newTestGenerator(t, DefaultConfig(), nil, nil)

	_, err := gen.ValidateUniqueness(context.Background(), "PPFI-STU2507050001")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestParseSequenceRoundTrip(t *testing.T) {
	gen := newTestGenerator(t, DefaultConfig(), nil, nil)
	pattern := gen.Pattern(CategoryStudent, issuedAt)

	for _, n := range []int64{1, 7, 123, 9999, 10000} {
		out, err := sequenced(Attempt{Pattern: pattern, SequenceLength: 4}, n)
		require.NoError(t, err)

		parsed, ok := ParseSequence(out.Number, pattern)
		require.True(t, ok)
		assert.Equal(t, n, parsed)
	}
}

func TestChainCollectsStrategyErrors(t *testing.T) {
	chain := Chain{
		atomicStrategy{},
		scanStrategy{},
		clockStrategy{},
	}

	out, failures := chain.Run(context.Background(), Attempt{Pattern: "X-STU25", SequenceLength: 4, Now: issuedAt})

	assert.Equal(t, StrategyClock, out.Strategy)
	require.Len(t, failures, 2)

	var se *StrategyError
	require.ErrorAs(t, failures[0], &se)
	assert.Equal(t, StrategyAtomic, se.Strategy)
	assert.ErrorIs(t, failures[0], ErrSequenceUnavailable)
	assert.ErrorIs(t, failures[1], ErrStoreUnavailable)
}

func TestEmptyChainIsExhausted(t *testing.T) {
	_, failures := Chain{}.Run(context.Background(), Attempt{Pattern: "X"})
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0], ErrStrategiesExhausted)
}

func TestNewGeneratorRejectsInvalidConfig(t *testing.T) {
	_, err := NewGenerator(Config{Prefix: "PPFI", Separator: "-", SequenceLength: 0, DateGranularity: GranularityYear}, Dependencies{})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "sequence_length", verr.Field)
}
