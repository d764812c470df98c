package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type flakyOracle struct {
	errs  []error
	calls int
}

func (o *flakyOracle) Name() string { return "flaky" }

func (o *flakyOracle) Classify(context.Context, ClassifyRequest) (*ClassifyResponse, error) {
	i := o.calls
	o.calls++
	if i < len(o.errs) && o.errs[i] != nil {
		return nil, o.errs[i]
	}
	return &ClassifyResponse{Units: []DraftUnit{{SDimension: "S1"}}}, nil
}

func (o *flakyOracle) Verify(context.Context, VerifyRequest) (*VerifyResponse, error) {
	i := o.calls
	o.calls++
	if i < len(o.errs) && o.errs[i] != nil {
		return nil, o.errs[i]
	}
	return &VerifyResponse{Pass: true, Evidence: "span"}, nil
}

func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	orig := retrySleepFunc
	retrySleepFunc = func(d time.Duration) { slept = append(slept, d) }
	t.Cleanup(func() { retrySleepFunc = orig })
	return &slept
}

func TestRetryingOracle_RetriesTransientFailures(t *testing.T) {
	slept := stubSleep(t)
	inner := &flakyOracle{errs: []error{
		errors.New("429 rate limit exceeded"),
		errors.New("connection refused"),
		nil,
	}}
	oracle := NewRetryingOracle(inner, 3)

	resp, err := oracle.Classify(context.Background(), ClassifyRequest{AssertionText: "x"})
	if err != nil {
		t.Fatalf("expected success on third attempt: %v", err)
	}
	if len(resp.Units) != 1 {
		t.Errorf("expected the recovered response, got %+v", resp)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", inner.calls)
	}
	// Exponential: 1s then 2s
	if len(*slept) != 2 || (*slept)[0] != time.Second || (*slept)[1] != 2*time.Second {
		t.Errorf("unexpected backoff schedule %v", *slept)
	}
}

func TestRetryingOracle_TimeoutNotRetried(t *testing.T) {
	slept := stubSleep(t)
	inner := &flakyOracle{errs: []error{ErrOracleTimeout, nil}}
	oracle := NewRetryingOracle(inner, 3)

	_, err := oracle.Classify(context.Background(), ClassifyRequest{AssertionText: "x"})
	if !errors.Is(err, ErrOracleTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("timeouts must not be retried, got %d attempts", inner.calls)
	}
	if len(*slept) != 0 {
		t.Errorf("no backoff expected, slept %v", *slept)
	}
}

func TestRetryingOracle_MalformedRetried(t *testing.T) {
	slept := stubSleep(t)
	inner := &flakyOracle{errs: []error{ErrMalformedResponse, nil}}
	oracle := NewRetryingOracle(inner, 3)

	resp, err := oracle.Verify(context.Background(), VerifyRequest{Claim: "x"})
	if err != nil {
		t.Fatalf("expected a clean second completion, got %v", err)
	}
	if !resp.Pass {
		t.Errorf("expected the recovered response, got %+v", resp)
	}
	if inner.calls != 2 {
		t.Errorf("malformed responses must be retried, got %d attempts", inner.calls)
	}
	if len(*slept) != 1 || (*slept)[0] != time.Second {
		t.Errorf("unexpected backoff schedule %v", *slept)
	}
}

func TestRetryingOracle_MalformedGivesUpAfterMaxAttempts(t *testing.T) {
	stubSleep(t)
	inner := &flakyOracle{errs: []error{
		ErrMalformedResponse,
		ErrMalformedResponse,
		ErrMalformedResponse,
	}}
	oracle := NewRetryingOracle(inner, 3)

	_, err := oracle.Verify(context.Background(), VerifyRequest{Claim: "x"})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected malformed error after exhausting attempts, got %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", inner.calls)
	}
}

func TestRetryingOracle_GivesUpAfterMaxAttempts(t *testing.T) {
	stubSleep(t)
	inner := &flakyOracle{errs: []error{
		errors.New("503 service unavailable"),
		errors.New("503 service unavailable"),
		errors.New("503 service unavailable"),
	}}
	oracle := NewRetryingOracle(inner, 3)

	_, err := oracle.Classify(context.Background(), ClassifyRequest{AssertionText: "x"})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if inner.calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", inner.calls)
	}
}

func TestBuildClassifyPrompt(t *testing.T) {
	req := ClassifyRequest{
		AssertionText:    "Each task should have an owner",
		RegistrySnapshot: "taxonomy v3.1\nS2 Ownership Assignment",
		RegistryVersion:  "v3.1",
	}

	prompt := BuildClassifyPrompt(req)
	for _, want := range []string{"Each task should have an owner", "taxonomy v3.1", "MUST be split"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "PREVIOUS RESPONSE WAS INVALID") {
		t.Error("corrective block should not appear on first attempt")
	}

	req.Corrective = `you referenced "G18", which is not a registered dimension id`
	prompt = BuildClassifyPrompt(req)
	if !strings.Contains(prompt, "G18") {
		t.Error("corrective retry must name the offending id")
	}
}

func TestBuildVerifyPrompt(t *testing.T) {
	prompt := BuildVerifyPrompt(VerifyRequest{
		Claim:         "the assumption does not contradict the record",
		ArtifactText:  "plan body",
		ScenarioFacts: "meeting on 2026-03-15",
	})
	for _, want := range []string{"plan body", "meeting on 2026-03-15", "NO_EVIDENCE"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
