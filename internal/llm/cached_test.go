package llm

import (
	"context"
	"testing"
	"time"

	"plangrade/internal/cache"
)

func TestCachedOracle_ClassifyHitsCacheOnRepeat(t *testing.T) {
	inner := &flakyOracle{}
	oracle := NewCachedOracle(inner, cache.NewMemoryCache(time.Hour, time.Hour))
	req := ClassifyRequest{AssertionText: "owners required", RegistryVersion: "v3.1", RegistrySnapshot: "snap"}

	first, err := oracle.Classify(context.Background(), req)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := oracle.Classify(context.Background(), req)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if inner.calls != 1 {
		t.Errorf("expected one upstream call, got %d", inner.calls)
	}
	if len(first.Units) != len(second.Units) || first.Units[0].SDimension != second.Units[0].SDimension {
		t.Errorf("cached response differs: %+v vs %+v", first, second)
	}
}

func TestCachedOracle_RegistryVersionPartitionsCache(t *testing.T) {
	inner := &flakyOracle{}
	oracle := NewCachedOracle(inner, cache.NewMemoryCache(time.Hour, time.Hour))

	req := ClassifyRequest{AssertionText: "owners required", RegistryVersion: "v3.1", RegistrySnapshot: "snap"}
	if _, err := oracle.Classify(context.Background(), req); err != nil {
		t.Fatalf("v3.1 call: %v", err)
	}

	req.RegistryVersion = "v3.2"
	if _, err := oracle.Classify(context.Background(), req); err != nil {
		t.Fatalf("v3.2 call: %v", err)
	}

	// A taxonomy revision must not serve answers cached under the old version
	if inner.calls != 2 {
		t.Errorf("expected a fresh upstream call per registry version, got %d", inner.calls)
	}
}

func TestCachedOracle_ErrorsNotCached(t *testing.T) {
	inner := &flakyOracle{errs: []error{ErrOracleTimeout, nil}}
	oracle := NewCachedOracle(inner, cache.NewMemoryCache(time.Hour, time.Hour))
	req := VerifyRequest{Claim: "claim", ArtifactText: "plan", ScenarioFacts: "facts"}

	if _, err := oracle.Verify(context.Background(), req); err == nil {
		t.Fatal("expected the timeout to surface")
	}
	resp, err := oracle.Verify(context.Background(), req)
	if err != nil {
		t.Fatalf("retry after timeout: %v", err)
	}
	if !resp.Pass {
		t.Error("expected the fresh response, not a cached failure")
	}
}
