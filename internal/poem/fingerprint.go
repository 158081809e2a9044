package poem

import (
	"strings"

	"github.com/maheshrc27/walk-gallery/internal/models"
)

// Separator joins words in a fingerprint. Occurrences inside a word are
// escaped, so distinct word lists never share a fingerprint.
const Separator = " • "

var escaper = strings.NewReplacer(`\`, `\\`, "•", `\•`)

// emptyWord stands in for "". Escaped words never contain a lone backslash
// before a letter, so it cannot clash with a real word, and an empty word
// list stays the only input fingerprinting to "".
const emptyWord = `\e`

// Fingerprint is order-sensitive and exact: the same words in another order
// produce another fingerprint.
func Fingerprint(words []string) string {
	escaped := make([]string, len(words))
	for i, w := range words {
		if w == "" {
			escaped[i] = emptyWord
			continue
		}
		escaped[i] = escaper.Replace(w)
	}
	return strings.Join(escaped, Separator)
}

// Words collects the word slot of each post, keeping the posts' order.
func Words(posts []*models.Post) []string {
	var words []string
	for _, p := range posts {
		if p.Content.HasWord() {
			words = append(words, strings.TrimSpace(p.Content.Word))
		}
	}
	return words
}
