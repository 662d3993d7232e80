package keyword

import (
	"context"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		filename string
		text     string
		want     string
	}{
		{filename: "notes.md", text: "The VILLAIN hides in the city.", want: "character"},
		{filename: "notes.md", text: "The town square at dawn.", want: "location"},
		{filename: "notes.md", text: "Combat begins with goblins.", want: "encounter"},
		{filename: "notes.md", text: "An old legend of the sea.", want: "lore"},
		{filename: "notes.md", text: "Our next quest begins.", want: "adventure"},
		{filename: "notes.md", text: "Shopping list: bread.", want: "general"},
		{filename: "npc_roster.xlsx", text: "Name, Race", want: "character"},
	}
	c := New()
	for _, tc := range cases {
		got, err := c.Classify(context.Background(), tc.filename, tc.text)
		if err != nil {
			t.Fatalf("Classify() error = %v", err)
		}
		if got != tc.want {
			t.Fatalf("Classify(%q, %q) = %q, want %q", tc.filename, tc.text, got, tc.want)
		}
	}
}
