package poem

import (
	"context"
	"log/slog"
	"time"
)

// Generator is the remote text-generation capability.
type Generator interface {
	Generate(ctx context.Context, words []string) (string, error)
}

type Outcome int

const (
	OutcomeNoWords Outcome = iota
	OutcomeCacheHit
	OutcomeGenerated
	OutcomeRateLimited
	OutcomeGenerationFailed
	OutcomeCacheUnavailable
	OutcomeCacheMiss
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoWords:
		return "no_words"
	case OutcomeCacheHit:
		return "cache_hit"
	case OutcomeGenerated:
		return "generated"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeGenerationFailed:
		return "generation_failed"
	case OutcomeCacheUnavailable:
		return "cache_unavailable"
	case OutcomeCacheMiss:
		return "cache_miss"
	}
	return "unknown"
}

// Result carries the poem, if any, and why. Callers that only render need
// Present and Text; the outcome keeps the absent cases apart.
type Result struct {
	Text        string
	Fingerprint string
	Outcome     Outcome
	Cooldown    time.Duration
	Err         error
}

func (r Result) Present() bool {
	return r.Outcome == OutcomeCacheHit || r.Outcome == OutcomeGenerated
}

type Gate struct {
	cache     *Memoizer
	limiter   *RateLimiter
	generator Generator
	timeout   time.Duration
}

func NewGate(cache *Memoizer, limiter *RateLimiter, generator Generator, timeout time.Duration) *Gate {
	return &Gate{cache: cache, limiter: limiter, generator: generator, timeout: timeout}
}

// GetOrGenerate returns the cached poem for words, generating and caching
// one on a miss when callerID is within its allowance. It never returns an
// error; every failure is an absent result.
func (g *Gate) GetOrGenerate(ctx context.Context, words []string, callerID string) Result {
	if len(words) == 0 {
		return Result{Outcome: OutcomeNoWords}
	}

	fingerprint := Fingerprint(words)
	text, ok, err := g.cache.Get(ctx, fingerprint)
	if err != nil {
		slog.Warn("poem cache lookup failed", "error", err)
		return Result{Fingerprint: fingerprint, Outcome: OutcomeCacheUnavailable, Err: err}
	}
	if ok {
		return Result{Text: text, Fingerprint: fingerprint, Outcome: OutcomeCacheHit}
	}

	decision := g.limiter.TryAcquire(callerID)
	if !decision.Allowed {
		slog.Debug("poem generation rate limited", "caller", callerID, "remaining", decision.Remaining)
		return Result{Fingerprint: fingerprint, Outcome: OutcomeRateLimited, Cooldown: decision.Remaining}
	}

	genCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	text, err = g.generator.Generate(genCtx, words)
	if err != nil {
		slog.Info(err.Error())
		return Result{Fingerprint: fingerprint, Outcome: OutcomeGenerationFailed, Err: err}
	}

	if err := g.cache.Put(ctx, fingerprint, text); err != nil {
		slog.Warn("poem cache write failed", "fingerprint", fingerprint, "error", err)
	}
	slog.Info("poem generated", "words", len(words), "caller", callerID)
	return Result{Text: text, Fingerprint: fingerprint, Outcome: OutcomeGenerated}
}

// Peek returns a cached poem without ever generating one.
func (g *Gate) Peek(ctx context.Context, words []string) Result {
	if len(words) == 0 {
		return Result{Outcome: OutcomeNoWords}
	}
	fingerprint := Fingerprint(words)
	text, ok, err := g.cache.Get(ctx, fingerprint)
	if err != nil {
		return Result{Fingerprint: fingerprint, Outcome: OutcomeCacheUnavailable, Err: err}
	}
	if !ok {
		return Result{Fingerprint: fingerprint, Outcome: OutcomeCacheMiss}
	}
	return Result{Text: text, Fingerprint: fingerprint, Outcome: OutcomeCacheHit}
}
