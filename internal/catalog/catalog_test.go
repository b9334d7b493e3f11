package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogLookup(t *testing.T) {
	c := Default()

	t.Run("FindByID", func(t *testing.T) {
		ch, ok := c.FindByID("elf-mage")
		require.True(t, ok)
		assert.Equal(t, "精灵魔法师", ch.Name)
		assert.NotEmpty(t, ch.SystemPrompt)
	})

	t.Run("FindByName", func(t *testing.T) {
		ch, ok := c.FindByName("哈利·波特")
		require.True(t, ok)
		assert.Equal(t, "harry-potter", ch.ID)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, ok := c.FindByID("gandalf")
		assert.False(t, ok)
		_, ok = c.FindByName("甘道夫")
		assert.False(t, ok)
	})
}

func TestCatalogSearch(t *testing.T) {
	c := Default()

	t.Run("EmptyQueryAllCategoryReturnsFullCatalogInOrder", func(t *testing.T) {
		all := c.All()
		got := c.Search("", "all")
		require.Len(t, got, len(all))
		for i := range all {
			assert.Equal(t, all[i].ID, got[i].ID)
		}
	})

	t.Run("CategoryFilter", func(t *testing.T) {
		got := c.Search("", "philosophy")
		require.Len(t, got, 2)
		assert.Equal(t, "socrates", got[0].ID)
		assert.Equal(t, "confucius", got[1].ID)
	})

	t.Run("SubstringOverTags", func(t *testing.T) {
		got := c.Search("魔法", "all")
		ids := make([]string, 0, len(got))
		for _, ch := range got {
			ids = append(ids, ch.ID)
		}
		assert.Contains(t, ids, "harry-potter")
		assert.Contains(t, ids, "elf-mage")
	})

	t.Run("CaseInsensitive", func(t *testing.T) {
		lower := c.Search("ai", "all")
		upper := c.Search(strings.ToUpper("ai"), "all")
		require.NotEmpty(t, lower)
		assert.Equal(t, lower, upper)
	})

	t.Run("QueryWithinCategory", func(t *testing.T) {
		got := c.Search("魔法", "literature")
		require.Len(t, got, 1)
		assert.Equal(t, "harry-potter", got[0].ID)
	})

	t.Run("NoMatch", func(t *testing.T) {
		assert.Empty(t, c.Search("量子力学", "all"))
	})
}
