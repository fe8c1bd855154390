package symtree

import (
	"fmt"
	"sort"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// CharCounter measures text in the char channel unit.
type CharCounter func(text string) int

// Char unit names accepted by CharCounterByName.
const (
	CharUnitRune     = "rune"
	CharUnitUTF16    = "utf16"
	CharUnitGrapheme = "grapheme"
)

// RuneCounter counts code points, making chars equal to symbols for text.
func RuneCounter(text string) int {
	return utf8.RuneCountInString(text)
}

// UTF16Counter counts UTF-16 code units, the unit input method editors use.
func UTF16Counter(text string) int {
	count := 0

	for _, r := range text {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}

		count += n
	}

	return count
}

// GraphemeCounter counts user-perceived characters.
func GraphemeCounter(text string) int {
	return uniseg.GraphemeClusterCount(text)
}

// CharCounterByName maps a char unit name to its counter.
func CharCounterByName(name string) (CharCounter, error) {
	switch name {
	case CharUnitRune, "":
		return RuneCounter, nil
	case CharUnitUTF16:
		return UTF16Counter, nil
	case CharUnitGrapheme:
		return GraphemeCounter, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCharUnit, name)
	}
}

// runePrefix returns the first k runes of text.
func runePrefix(text string, k int) string {
	for byteIdx := range text {
		if k == 0 {
			return text[:byteIdx]
		}

		k--
	}

	return text
}

// charsBefore is the char count of a run's first k symbols.
func (tree *Tree) charsBefore(nd *node, k int) int {
	if nd.text == "" {
		return k
	}

	return tree.counter(runePrefix(nd.text, k))
}

// symbolsForChars returns the smallest in-run offset whose prefix holds at
// least chars chars.
func (tree *Tree) symbolsForChars(nd *node, chars int) int {
	if nd.text == "" {
		return min(chars, nd.symbols)
	}

	return sort.Search(nd.symbols, func(k int) bool {
		return tree.counter(runePrefix(nd.text, k)) >= chars
	})
}
