// Package catalog holds the static character catalog.
// Catalog characters are read-only; user-created roles live in the store.
package catalog

import "strings"

// Character is a persona definition driving the system prompt.
type Character struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Personality string   `json:"personality"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Image       string   `json:"image,omitempty"`
	// SystemPrompt, when set, is a hand-authored template used verbatim
	// instead of the generated default for this character.
	SystemPrompt string `json:"system_prompt,omitempty"`
	IsCustom     bool   `json:"is_custom"`
}

// Catalog provides read-only lookup over the static character set.
type Catalog struct {
	characters []Character
	byID       map[string]int
	byName     map[string]int
}

// New creates a catalog over the given characters, preserving order.
func New(characters []Character) *Catalog {
	c := &Catalog{
		characters: characters,
		byID:       make(map[string]int, len(characters)),
		byName:     make(map[string]int, len(characters)),
	}
	for i, ch := range characters {
		c.byID[ch.ID] = i
		c.byName[ch.Name] = i
	}
	return c
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return New(seedCharacters)
}

// FindByID returns the character with the given id.
func (c *Catalog) FindByID(id string) (*Character, bool) {
	i, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	ch := c.characters[i]
	return &ch, true
}

// FindByName returns the character with the given display name.
func (c *Catalog) FindByName(name string) (*Character, bool) {
	i, ok := c.byName[name]
	if !ok {
		return nil, false
	}
	ch := c.characters[i]
	return &ch, true
}

// All returns every catalog character in definition order.
func (c *Catalog) All() []Character {
	out := make([]Character, len(c.characters))
	copy(out, c.characters)
	return out
}

// Search returns characters matching the query within the given category,
// in catalog order. Matching is a case-insensitive substring check over
// name, description, personality and tags. An empty query returns the
// category-filtered set unchanged; category "all" or "" means no filtering.
func (c *Catalog) Search(query, category string) []Character {
	query = strings.ToLower(strings.TrimSpace(query))
	filterCategory := category != "" && category != "all"

	var out []Character
	for _, ch := range c.characters {
		if filterCategory && ch.Category != category {
			continue
		}
		if query != "" && !matches(&ch, query) {
			continue
		}
		out = append(out, ch)
	}
	return out
}

func matches(ch *Character, query string) bool {
	if strings.Contains(strings.ToLower(ch.Name), query) ||
		strings.Contains(strings.ToLower(ch.Description), query) ||
		strings.Contains(strings.ToLower(ch.Personality), query) {
		return true
	}
	for _, tag := range ch.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}
