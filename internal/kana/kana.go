// Package kana provides the static kana catalogs practiced by the trainer.
package kana

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/verte-zerg/kanadrill/internal/practice"
)

// Script selects the kana syllabary.
type Script string

// Subset selects a named group of a script's kana.
type Subset string

const (
	Hiragana Script = "hiragana"
	Katakana Script = "katakana"
	Mixed    Script = "mixed"
)

const (
	Main        Subset = "main"
	Dakuten     Subset = "dakuten"
	Combination Subset = "combination"
	All         Subset = "all"
)

var (
	ErrUnknownScript = errors.New("kana: unknown script")
	ErrUnknownSubset = errors.New("kana: unknown subset")
)

// Scripts lists the accepted scripts.
func Scripts() []Script { return []Script{Hiragana, Katakana, Mixed} }

// Subsets lists the accepted subsets.
func Subsets() []Subset { return []Subset{Main, Dakuten, Combination, All} }

// ParseScript resolves a script name.
func ParseScript(name string) (Script, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "hiragana", "h":
		return Hiragana, nil
	case "katakana", "k":
		return Katakana, nil
	case "mixed", "both":
		return Mixed, nil
	default:
		return "", fmt.Errorf("%w %q (available: hiragana, katakana, mixed)", ErrUnknownScript, name)
	}
}

// ParseSubset resolves a subset name. "extended" is an alias of dakuten.
func ParseSubset(name string) (Subset, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "main":
		return Main, nil
	case "dakuten", "extended":
		return Dakuten, nil
	case "combination", "combo":
		return Combination, nil
	case "all":
		return All, nil
	default:
		return "", fmt.Errorf("%w %q (available: main, dakuten, combination, all)", ErrUnknownSubset, name)
	}
}

// Catalog returns the ordered items of subset within script. The result is a
// fresh slice; callers may keep it.
func Catalog(script Script, subset Subset) ([]practice.Item, error) {
	var scripts []Script
	switch script {
	case Hiragana, Katakana:
		scripts = []Script{script}
	case Mixed:
		scripts = []Script{Hiragana, Katakana}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownScript, script)
	}

	var items []practice.Item
	for _, s := range scripts {
		groups, err := tablesFor(s, subset)
		if err != nil {
			return nil, err
		}
		for _, group := range groups {
			for _, e := range group {
				items = append(items, practice.Item{ID: e.glyph, Answer: e.romaji})
			}
		}
	}
	return items, nil
}

func tablesFor(script Script, subset Subset) ([][]entry, error) {
	base, dakuten, combination := mainHiragana, dakutenHiragana, combinationHiragana
	if script == Katakana {
		base, dakuten, combination = mainKatakana, dakutenKatakana, combinationKatakana
	}
	switch subset {
	case Main:
		return [][]entry{base}, nil
	case Dakuten:
		return [][]entry{dakuten}, nil
	case Combination:
		return [][]entry{combination}, nil
	case All:
		return [][]entry{base, dakuten, combination}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownSubset, subset)
	}
}

// ByRomaji maps a romanization back to the first glyph of script that uses
// it. It is used to show which kana a wrong answer actually spells.
func ByRomaji(script Script) map[string]string {
	items, err := Catalog(script, All)
	if err != nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(items))
	for _, item := range items {
		if _, ok := out[item.Answer]; !ok {
			out[item.Answer] = item.ID
		}
	}
	return out
}

// ScriptOf reports which syllabary glyph is written in, judged by its first
// rune. Anything outside the katakana block counts as hiragana.
func ScriptOf(glyph string) Script {
	r, _ := utf8.DecodeRuneInString(glyph)
	if unicode.In(r, unicode.Katakana) {
		return Katakana
	}
	return Hiragana
}

// Normalize trims and lowercases a typed answer.
func Normalize(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// Matches reports whether input spells expected.
func Matches(input, expected string) bool {
	return Normalize(input) == Normalize(expected)
}
