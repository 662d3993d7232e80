package usecase

import (
	"sort"
	"strings"

	"github.com/kirillkom/campaign-assistant/internal/core/domain"
)

const campaignTitleBoost = 1.2

// RankCandidates filters candidates at or below threshold, applies context
// boosts, keeps the first candidate per document and sorts by boosted
// similarity. Equal scores keep their incoming order. Inputs are not mutated.
func RankCandidates(candidates []domain.Candidate, rc domain.RetrievalContext, threshold float64) []domain.Candidate {
	return rankCandidates(candidates, rc, threshold, true)
}

func rankCandidates(candidates []domain.Candidate, rc domain.RetrievalContext, threshold float64, boost bool) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))

	for _, candidate := range candidates {
		if candidate.Similarity <= threshold {
			continue
		}
		if boost {
			candidate.Similarity *= contextBoost(candidate, rc)
		}

		key := dedupKey(candidate)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, candidate)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})
	return out
}

func contextBoost(candidate domain.Candidate, rc domain.RetrievalContext) float64 {
	boost := 1.0

	campaign := strings.ToLower(strings.TrimSpace(rc.CurrentCampaign))
	if campaign != "" && strings.Contains(strings.ToLower(candidate.Metadata[domain.MetaDocumentTitle]), campaign) {
		boost *= campaignTitleBoost
	}

	if len(rc.ContentPreferences) > 0 {
		contentType := candidate.Meta(domain.MetaContentType, domain.ContentTypeGeneral)
		if weight, ok := rc.ContentPreferences[contentType]; ok {
			boost *= weight
		}
	}
	return boost
}

// dedupKey groups chunks of one document. Candidates without a document id
// are keyed by content so unrelated orphans are never merged.
func dedupKey(candidate domain.Candidate) string {
	if id := candidate.DocumentID(); id != "" {
		return "doc:" + id
	}
	return "content:" + candidate.Content
}
