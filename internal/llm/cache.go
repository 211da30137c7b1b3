package llm

import (
	"context"
	"encoding/binary"
	"encoding/hex"

	"github.com/raine/telegram-prompt-bot/internal/imagefile"
	"github.com/raine/telegram-prompt-bot/internal/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"
)

// CachedAnalyzer wraps a Client and caches analysis prompts per image.
// Every other operation passes through untouched.
type CachedAnalyzer struct {
	Client
	store storage.PromptCache
	model string
	salt  string
}

// NewCachedAnalyzer creates a cached client. salt is mixed into the key so a
// change of analysis instruction or language does not return stale prompts.
func NewCachedAnalyzer(inner Client, store storage.PromptCache, model, salt string) *CachedAnalyzer {
	return &CachedAnalyzer{Client: inner, store: store, model: model, salt: salt}
}

// hashImage creates a BLAKE2b-256 hash of the image and the cache salt.
// Each field is length-prefixed to prevent boundary collisions.
func hashImage(img *imagefile.Image, model, salt string) string {
	h, _ := blake2b.New256(nil)
	for _, field := range [][]byte{img.Data, []byte(img.MIMEType), []byte(model), []byte(salt)} {
		binary.Write(h, binary.LittleEndian, int64(len(field)))
		h.Write(field)
	}
	return hex.EncodeToString(h.Sum(nil))
}

type freshKey struct{}

// WithFreshAnalysis marks ctx so a cached analysis is not reused. The new
// result still replaces the cached one.
func WithFreshAnalysis(ctx context.Context) context.Context {
	return context.WithValue(ctx, freshKey{}, true)
}

// WantsFreshAnalysis reports whether ctx was marked by WithFreshAnalysis.
func WantsFreshAnalysis(ctx context.Context) bool {
	fresh, _ := ctx.Value(freshKey{}).(bool)
	return fresh
}

// Analyze implements Analyzer with caching. Failures are never cached.
func (c *CachedAnalyzer) Analyze(ctx context.Context, img *imagefile.Image) (string, error) {
	if c.store == nil || img == nil || len(img.Data) == 0 {
		return c.Client.Analyze(ctx, img)
	}

	hash := hashImage(img, c.model, c.salt)

	if WantsFreshAnalysis(ctx) {
		log.Debug().Str("hash", hash[:16]).Msg("prompt cache bypassed")
	} else if cached, err := c.store.GetPrompt(hash); err != nil {
		log.Warn().Err(err).Msg("failed to check prompt cache")
	} else if cached != nil {
		log.Debug().Str("hash", hash[:16]).Msg("prompt cache hit")
		return cached.Prompt, nil
	}

	prompt, err := c.Client.Analyze(ctx, img)
	if err != nil {
		return "", err
	}

	if err := c.store.SetPrompt(hash, &storage.CachedPrompt{Prompt: prompt, Model: c.model}); err != nil {
		log.Warn().Err(err).Msg("failed to cache analysis prompt")
	} else {
		log.Debug().Str("hash", hash[:16]).Msg("cached analysis prompt")
	}

	return prompt, nil
}
