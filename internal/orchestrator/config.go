package orchestrator

import "github.com/nescampos/ainalyst/internal/retriever"

// CapabilityLevel describes which upstream services a run can reach. Lower
// levels still complete a run; their stages just fall back more often.
type CapabilityLevel int

const (
	// CapOffline has no model credentials: the plan is the query itself and
	// the report is the local fallback.
	CapOffline CapabilityLevel = iota

	// CapModelOnly has a model but a retriever without credentials, so every
	// sub-question is answered from the placeholder source.
	CapModelOnly

	// CapFull has both a model and a working retriever.
	CapFull
)

func (c CapabilityLevel) String() string {
	switch c {
	case CapOffline:
		return "offline"
	case CapModelOnly:
		return "model-only"
	case CapFull:
		return "full"
	default:
		return "unknown"
	}
}

// DetectCapability derives the level from which credentials are configured.
func DetectCapability(modelConfigured bool, retrieverKind string, rc retriever.Config) CapabilityLevel {
	switch {
	case !modelConfigured:
		return CapOffline
	case !retriever.HasCredentials(retrieverKind, rc):
		return CapModelOnly
	default:
		return CapFull
	}
}

// Config holds runtime configuration for a research run.
type Config struct {
	// MaxSubtopics caps the plan length. Zero leaves the planner's own bound.
	MaxSubtopics int

	// Concurrency is how many sub-questions are researched at once.
	// Values below 1 mean one at a time.
	Concurrency int

	// Capability is recorded on every Result and logged at start.
	Capability CapabilityLevel
}
