package kana

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogSizes(t *testing.T) {
	cases := []struct {
		script Script
		subset Subset
		want   int
	}{
		{Hiragana, Main, 46},
		{Hiragana, Dakuten, 25},
		{Hiragana, Combination, 33},
		{Hiragana, All, 104},
		{Katakana, Main, 46},
		{Katakana, Dakuten, 26},
		{Katakana, Combination, 55},
		{Katakana, All, 127},
		{Mixed, All, 231},
		{Mixed, Main, 92},
	}
	for _, tc := range cases {
		items, err := Catalog(tc.script, tc.subset)
		require.NoError(t, err)
		assert.Len(t, items, tc.want, "%s/%s", tc.script, tc.subset)
	}
}

func TestCatalogIDsAreUnique(t *testing.T) {
	items, err := Catalog(Mixed, All)
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, item := range items {
		assert.False(t, seen[item.ID], "duplicate %s", item.ID)
		assert.NotEmpty(t, item.Answer, item.ID)
		seen[item.ID] = true
	}
}

func TestCatalogOrderIsStable(t *testing.T) {
	items, err := Catalog(Hiragana, All)
	require.NoError(t, err)
	assert.Equal(t, "あ", items[0].ID)
	assert.Equal(t, "が", items[46].ID)
	assert.Equal(t, "ぴょ", items[len(items)-1].ID)

	items[0].ID = "changed"
	again, err := Catalog(Hiragana, All)
	require.NoError(t, err)
	assert.Equal(t, "あ", again[0].ID)
}

func TestParse(t *testing.T) {
	s, err := ParseScript(" Katakana ")
	require.NoError(t, err)
	assert.Equal(t, Katakana, s)

	sub, err := ParseSubset("extended")
	require.NoError(t, err)
	assert.Equal(t, Dakuten, sub)

	_, err = ParseScript("kanji")
	assert.True(t, errors.Is(err, ErrUnknownScript))
	_, err = ParseSubset("rare")
	assert.True(t, errors.Is(err, ErrUnknownSubset))
	_, err = Catalog(Hiragana, Subset("x"))
	assert.True(t, errors.Is(err, ErrUnknownSubset))
}

func TestByRomaji(t *testing.T) {
	rev := ByRomaji(Hiragana)
	assert.Equal(t, "し", rev["shi"])
	assert.Equal(t, "を", rev["wo"])
	assert.Equal(t, "じゃ", rev["ja"])
	_, ok := rev["vu"]
	assert.False(t, ok)

	assert.Equal(t, "ヲ", ByRomaji(Katakana)["wo"])
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches(" SHI ", "shi"))
	assert.False(t, Matches("si", "shi"))
	assert.False(t, Matches("", "a"))
}

func TestScriptOf(t *testing.T) {
	assert.Equal(t, Hiragana, ScriptOf("しゃ"))
	assert.Equal(t, Katakana, ScriptOf("ヴァ"))
	assert.Equal(t, Hiragana, ScriptOf(""))
}
