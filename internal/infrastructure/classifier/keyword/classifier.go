package keyword

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/kirillkom/campaign-assistant/internal/core/domain"
)

type rule struct {
	contentType string
	words       []string
}

// rules are checked in order; the first rule with any hit wins.
var rules = []rule{
	{contentType: domain.ContentTypeCharacter, words: []string{"npc", "character", "villain", "ally"}},
	{contentType: domain.ContentTypeLocation, words: []string{"location", "city", "town", "dungeon", "map"}},
	{contentType: domain.ContentTypeEncounter, words: []string{"encounter", "combat", "monster", "creature"}},
	{contentType: domain.ContentTypeLore, words: []string{"lore", "history", "legend", "mythology"}},
	{contentType: domain.ContentTypeAdventure, words: []string{"quest", "adventure", "mission", "campaign"}},
}

// Classifier assigns a content type from keyword hits in the file name and
// extracted text.
type Classifier struct{}

func New() *Classifier {
	return &Classifier{}
}

func (c *Classifier) Classify(_ context.Context, filename, text string) (string, error) {
	haystack := strings.ToLower(filepath.Base(filename) + "\n" + text)
	for _, r := range rules {
		for _, word := range r.words {
			if strings.Contains(haystack, word) {
				return r.contentType, nil
			}
		}
	}
	return domain.ContentTypeGeneral, nil
}
