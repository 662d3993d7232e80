package domain

import "strings"

// Metadata keys written by the indexers and read by ranking.
const (
	MetaDocumentID    = "document_id"
	MetaDocumentTitle = "document_title"
	MetaContentType   = "content_type"
	MetaFilePath      = "file_path"
	MetaFileType      = "file_type"
	MetaChunkIndex    = "chunk_index"
	MetaTotalChunks   = "total_chunks"
	MetaCreatedAt     = "created_at"
)

type SearchFilter struct {
	ContentType string
}

// Candidate is an unranked match returned by a vector search backend.
// Similarity is in [0,1] before boosting, higher is more relevant.
type Candidate struct {
	Content    string            `json:"content"`
	Similarity float64           `json:"similarity"`
	Metadata   map[string]string `json:"metadata"`
}

func (c Candidate) Meta(key, fallback string) string {
	if v, ok := c.Metadata[key]; ok && v != "" {
		return v
	}
	return fallback
}

func (c Candidate) DocumentID() string {
	return c.Metadata[MetaDocumentID]
}

type RetrievalResult struct {
	Content        string            `json:"content"`
	SourceTitle    string            `json:"source_title"`
	SourcePath     string            `json:"source_path"`
	ContentType    string            `json:"content_type"`
	RelevanceScore float64           `json:"relevance_score"`
	Metadata       map[string]string `json:"metadata"`
}

// RetrievalContext is the operator's current campaign state used for boosting
// and query enrichment. It is replaced wholesale, never patched.
type RetrievalContext struct {
	CurrentCampaign    string             `json:"current_campaign,omitempty"`
	CurrentLocation    string             `json:"current_location,omitempty"`
	RecentEvents       []string           `json:"recent_events,omitempty"`
	ActiveNPCs         []string           `json:"active_npcs,omitempty"`
	ContentPreferences map[string]float64 `json:"content_preferences,omitempty"`
}

// Clone returns a deep copy. ActiveNPCs keeps first-seen order with blanks and
// duplicates removed.
func (c RetrievalContext) Clone() RetrievalContext {
	out := RetrievalContext{
		CurrentCampaign: strings.TrimSpace(c.CurrentCampaign),
		CurrentLocation: strings.TrimSpace(c.CurrentLocation),
	}
	if len(c.RecentEvents) > 0 {
		out.RecentEvents = append([]string(nil), c.RecentEvents...)
	}
	if len(c.ActiveNPCs) > 0 {
		seen := make(map[string]struct{}, len(c.ActiveNPCs))
		for _, npc := range c.ActiveNPCs {
			npc = strings.TrimSpace(npc)
			if npc == "" {
				continue
			}
			if _, ok := seen[npc]; ok {
				continue
			}
			seen[npc] = struct{}{}
			out.ActiveNPCs = append(out.ActiveNPCs, npc)
		}
	}
	if len(c.ContentPreferences) > 0 {
		out.ContentPreferences = make(map[string]float64, len(c.ContentPreferences))
		for k, v := range c.ContentPreferences {
			out.ContentPreferences[k] = v
		}
	}
	return out
}

type Intent string

const (
	IntentCharacterInfo Intent = "character_info"
	IntentLocationInfo  Intent = "location_info"
	IntentEncounterPrep Intent = "encounter_prep"
	IntentLoreLookup    Intent = "lore_lookup"
	IntentGeneralSearch Intent = "general_search"
)

// RetrievalSettings tunes the retrieval pipeline.
type RetrievalSettings struct {
	DefaultMaxResults          int
	MaxResultsLimit            int
	SimilarityThreshold        float64
	EnableIntentClassification bool
	EnableContextBoosting      bool
}
