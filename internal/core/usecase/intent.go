package usecase

import (
	"strings"

	"github.com/kirillkom/campaign-assistant/internal/core/domain"
)

type intentKeywords struct {
	intent   domain.Intent
	keywords []string
}

// intentTable is scored in declaration order. On equal scores the earlier
// intent wins.
var intentTable = []intentKeywords{
	{
		intent: domain.IntentCharacterInfo,
		keywords: []string{
			"npc", "character", "villain", "ally", "who is", "tell me about",
			"personality", "motivation", "backstory", "stats",
		},
	},
	{
		intent: domain.IntentLocationInfo,
		keywords: []string{
			"where", "location", "place", "city", "town", "dungeon", "map",
			"geography", "layout", "description",
		},
	},
	{
		intent: domain.IntentEncounterPrep,
		keywords: []string{
			"encounter", "combat", "fight", "battle", "monster", "creature",
			"tactics", "stats", "abilities", "challenge",
		},
	},
	{
		intent: domain.IntentLoreLookup,
		keywords: []string{
			"history", "lore", "legend", "mythology", "past", "ancient",
			"tradition", "culture", "religion",
		},
	},
}

var intentContentTypes = map[domain.Intent]string{
	domain.IntentCharacterInfo: domain.ContentTypeCharacter,
	domain.IntentLocationInfo:  domain.ContentTypeLocation,
	domain.IntentEncounterPrep: domain.ContentTypeEncounter,
	domain.IntentLoreLookup:    domain.ContentTypeLore,
}

// ClassifyIntent scores each intent by the number of its keywords found as
// substrings of the lower-cased query.
func ClassifyIntent(query string) domain.Intent {
	lowered := strings.ToLower(query)

	best := domain.IntentGeneralSearch
	bestScore := 0
	for _, entry := range intentTable {
		score := 0
		for _, keyword := range entry.keywords {
			if strings.Contains(lowered, keyword) {
				score++
			}
		}
		if score > bestScore {
			best = entry.intent
			bestScore = score
		}
	}
	return best
}

// ContentTypeFilter returns the content type searched for an intent, or ""
// when the intent should not filter.
func ContentTypeFilter(intent domain.Intent) string {
	return intentContentTypes[intent]
}
