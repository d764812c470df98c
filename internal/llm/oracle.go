// Package llm abstracts the external language-model oracles behind narrow
// interfaces. All non-determinism lives behind these interfaces: the
// decomposer, classifier and verifier treat oracle output as input and are
// themselves deterministic given the same response.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrOracleTimeout marks an oracle call that exceeded its deadline
var ErrOracleTimeout = errors.New("oracle call timed out")

// ErrMalformedResponse marks an oracle response that could not be parsed
var ErrMalformedResponse = errors.New("malformed oracle response")

// Oracle is the external classification/verification service
type Oracle interface {
	// Name returns the provider name
	Name() string

	// Classify decomposes one assertion into draft atomic units against the
	// registry snapshot embedded in the request.
	Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResponse, error)

	// Verify checks one claim against the artifact and scenario facts
	Verify(ctx context.Context, req VerifyRequest) (*VerifyResponse, error)
}

// ClassifyRequest carries everything the oracle needs to decompose an assertion
type ClassifyRequest struct {
	AssertionText    string
	RegistrySnapshot string // Taxonomy rendering, includes the registry version
	RegistryVersion  string
	ScenarioContext  string // Optional scenario summary
	Corrective       string // Non-empty on retry after an invalid response
}

// DraftSlot is one grounding slot proposed by the oracle
type DraftSlot struct {
	GDim     string `json:"g_dim"`
	SlotType string `json:"slot_type"`
	Value    string `json:"value"`
}

// DraftUnit is one atomic unit proposed by the oracle, pre-validation
type DraftUnit struct {
	SDimension       string            `json:"s_dimension"`
	Level            string            `json:"level"`
	Template         string            `json:"template"`
	InstantiatedText string            `json:"instantiated_text"`
	LinkedGDims      []string          `json:"linked_g_dims"`
	GSlots           []DraftSlot       `json:"g_slots"`
	GRationales      map[string]string `json:"g_rationales"` // g_dim -> implying text span
}

// ClassifyResponse is the oracle's decomposition of one assertion
type ClassifyResponse struct {
	Units []DraftUnit `json:"units"`
}

// VerifyRequest asks the oracle to check one claim
type VerifyRequest struct {
	Claim         string
	ArtifactText  string
	ScenarioFacts string
}

// VerifyResponse is the oracle's judgment of one claim
type VerifyResponse struct {
	Pass      bool   `json:"pass"`
	Evidence  string `json:"evidence"`
	Rationale string `json:"rationale"`
}

// Config holds oracle provider configuration
type Config struct {
	// Provider name: "openai", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints (e.g. a local Ollama)
	BaseURL string

	// Timeout per oracle call
	Timeout time.Duration

	// MaxRetries bounds transient-failure retries
	MaxRetries int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:   "openai",
		Model:      "gpt-4o-mini",
		Timeout:    30 * time.Second,
		MaxRetries: 3,
	}
}

// BuildClassifyPrompt constructs the decomposition prompt. The registry
// snapshot (with its version) is always embedded so classification is
// reproducible per registry version.
func BuildClassifyPrompt(req ClassifyRequest) string {
	var b strings.Builder

	b.WriteString(`You decompose quality assertions about meeting workback plans into atomic checks.

RULES:
1. An assertion combining independent requirements (e.g. "owner AND due date") MUST be split into separate units, one per requirement. Never merge requirements.
2. Each unit names exactly one structural dimension id from the taxonomy below. Use the empty string only for the overall hallucination check.
3. Each grounding slot names a slot type and grounding dimension id from the taxonomy. Never invent ids beyond those listed.
4. For every linked grounding dimension, quote the exact text span from the assertion that implies the grounding need (g_rationales).
5. If a fact fits no listed grounding dimension, route it to the meta dimension instead of inventing an id.

`)
	b.WriteString(req.RegistrySnapshot)
	if req.ScenarioContext != "" {
		fmt.Fprintf(&b, "\nScenario context:\n%s\n", req.ScenarioContext)
	}
	if req.Corrective != "" {
		fmt.Fprintf(&b, "\nYOUR PREVIOUS RESPONSE WAS INVALID: %s\nRespond again using only registered ids.\n", req.Corrective)
	}
	fmt.Fprintf(&b, "\nAssertion:\n%s\n", req.AssertionText)
	b.WriteString(`
Respond with JSON only:
{"units":[{"s_dimension":"S2","level":"critical","template":"...[OWNER]...","instantiated_text":"...","linked_g_dims":["G1"],"g_slots":[{"g_dim":"G1","slot_type":"OWNER","value":"..."}],"g_rationales":{"G1":"exact span"}}]}`)

	return b.String()
}

// BuildVerifyPrompt constructs the non-contradiction verification prompt
func BuildVerifyPrompt(req VerifyRequest) string {
	var b strings.Builder

	b.WriteString(`You verify one claim about a generated workback plan against the meeting's source-of-truth record.

RULES:
1. Judge only non-contradiction with the record facts, not presence in them.
2. "evidence" MUST be a verbatim span copied from the plan text. If you find no supporting span, set pass=false and evidence="NO_EVIDENCE".
3. Never pass a claim without evidence.

`)
	fmt.Fprintf(&b, "Record facts:\n%s\n\nPlan text:\n%s\n\nClaim:\n%s\n", req.ScenarioFacts, req.ArtifactText, req.Claim)
	b.WriteString(`
Respond with JSON only: {"pass":true,"evidence":"verbatim span","rationale":"..."}`)

	return b.String()
}
