package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/raine/telegram-prompt-bot/internal/imagefile"
	"github.com/raine/telegram-prompt-bot/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingClient struct {
	Client
	prompt string
	err    error
	calls  int
}

func (c *countingClient) Analyze(ctx context.Context, img *imagefile.Image) (string, error) {
	c.calls++
	return c.prompt, c.err
}

func TestCachedAnalyzer_HitsCacheForSameImage(t *testing.T) {
	store, err := storage.NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	inner := &countingClient{prompt: "Un faro bajo la tormenta"}
	cached := NewCachedAnalyzer(inner, store, DefaultTextModel, "es")

	first, err := cached.Analyze(context.Background(), testImage())
	require.NoError(t, err)
	second, err := cached.Analyze(context.Background(), testImage())
	require.NoError(t, err)

	assert.Equal(t, "Un faro bajo la tormenta", first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedAnalyzer_DifferentSaltMisses(t *testing.T) {
	store, err := storage.NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	inner := &countingClient{prompt: "x"}
	NewCachedAnalyzer(inner, store, DefaultTextModel, "es").Analyze(context.Background(), testImage())
	NewCachedAnalyzer(inner, store, DefaultTextModel, "en").Analyze(context.Background(), testImage())

	assert.Equal(t, 2, inner.calls)
}

func TestCachedAnalyzer_FailuresAreNotCached(t *testing.T) {
	store, err := storage.NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	inner := &countingClient{err: errors.New("boom")}
	cached := NewCachedAnalyzer(inner, store, DefaultTextModel, "es")

	_, err = cached.Analyze(context.Background(), testImage())
	assert.Error(t, err)

	inner.err = nil
	inner.prompt = "ok"
	prompt, err := cached.Analyze(context.Background(), testImage())
	require.NoError(t, err)
	assert.Equal(t, "ok", prompt)
	assert.Equal(t, 2, inner.calls)
}

func TestHashImage_LengthPrefixed(t *testing.T) {
	a := hashImage(&imagefile.Image{Data: []byte("ab"), MIMEType: "c"}, "m", "s")
	b := hashImage(&imagefile.Image{Data: []byte("a"), MIMEType: "bc"}, "m", "s")
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 64)
}

func TestCachedAnalyzer_FreshAnalysisRefreshesEntry(t *testing.T) {
	store, err := storage.NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	inner := &countingClient{prompt: "primera"}
	cached := NewCachedAnalyzer(inner, store, DefaultTextModel, "es")

	_, err = cached.Analyze(context.Background(), testImage())
	require.NoError(t, err)

	inner.prompt = "segunda"
	fresh, err := cached.Analyze(WithFreshAnalysis(context.Background()), testImage())
	require.NoError(t, err)
	assert.Equal(t, "segunda", fresh)

	again, err := cached.Analyze(context.Background(), testImage())
	require.NoError(t, err)
	assert.Equal(t, "segunda", again)
	assert.Equal(t, 2, inner.calls)
}

func TestWantsFreshAnalysis(t *testing.T) {
	assert.False(t, WantsFreshAnalysis(context.Background()))
	assert.True(t, WantsFreshAnalysis(WithFreshAnalysis(context.Background())))
}
