package llm

import (
	"context"
	"encoding/json"

	"plangrade/internal/cache"
)

// CachedOracle memoizes oracle responses keyed by registry version and
// prompt. Besides saving tokens, it pins re-runs of the same input to the
// same response, which the idempotence guarantees rely on.
type CachedOracle struct {
	inner Oracle
	store cache.Cache
}

// NewCachedOracle wraps an oracle with a response cache
func NewCachedOracle(inner Oracle, store cache.Cache) *CachedOracle {
	return &CachedOracle{inner: inner, store: store}
}

// Name returns the inner provider name
func (c *CachedOracle) Name() string {
	return c.inner.Name()
}

// Classify returns a cached decomposition when one exists
func (c *CachedOracle) Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResponse, error) {
	key := cache.Key("classify", req.RegistryVersion, BuildClassifyPrompt(req))

	if data, found := c.store.Get(key); found {
		var resp ClassifyResponse
		if err := json.Unmarshal(data, &resp); err == nil {
			return &resp, nil
		}
		// Corrupt entry: fall through and overwrite
	}

	resp, err := c.inner.Classify(ctx, req)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(resp); err == nil {
		_ = c.store.Set(key, data, 0)
	}
	return resp, nil
}

// Verify returns a cached verification when one exists
func (c *CachedOracle) Verify(ctx context.Context, req VerifyRequest) (*VerifyResponse, error) {
	key := cache.Key("verify", BuildVerifyPrompt(req))

	if data, found := c.store.Get(key); found {
		var resp VerifyResponse
		if err := json.Unmarshal(data, &resp); err == nil {
			return &resp, nil
		}
	}

	resp, err := c.inner.Verify(ctx, req)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(resp); err == nil {
		_ = c.store.Set(key, data, 0)
	}
	return resp, nil
}
