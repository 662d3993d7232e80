package domain

// Synthesis intents select the generation task and the system prompt.
const (
	SynthesisIntentGeneral         = "general"
	SynthesisIntentSessionPrep     = "session_prep"
	SynthesisIntentNPCInfo         = "npc_info"
	SynthesisIntentLoreExpansion   = "lore_expansion"
	SynthesisIntentEncounterDesign = "encounter_design"
	SynthesisIntentSessionSummary  = "session_summary"
)

// SynthesisIntents lists every intent the router maps to a task.
var SynthesisIntents = []string{
	SynthesisIntentGeneral,
	SynthesisIntentSessionPrep,
	SynthesisIntentNPCInfo,
	SynthesisIntentLoreExpansion,
	SynthesisIntentEncounterDesign,
	SynthesisIntentSessionSummary,
}

type SynthesisRequest struct {
	Query          string `json:"query"`
	Intent         string `json:"intent,omitempty"`
	Tone           string `json:"tone,omitempty"`
	MaxContextDocs int    `json:"max_context_docs,omitempty"`
}

type SynthesisMetadata struct {
	Intent          string    `json:"intent"`
	Tone            string    `json:"tone,omitempty"`
	Type            string    `json:"type,omitempty"`
	NumContextDocs  int       `json:"num_context_docs"`
	RetrievalScores []float64 `json:"retrieval_scores"`
}

type SynthesisResult struct {
	Content    string            `json:"content"`
	Sources    []string          `json:"sources"`
	Confidence float64           `json:"confidence"`
	Model      string            `json:"model"`
	Usage      Usage             `json:"usage"`
	Metadata   SynthesisMetadata `json:"metadata"`
}

// GenerationSettings are the sampling defaults applied to synthesis calls.
type GenerationSettings struct {
	Temperature float64
	MaxTokens   int
}
