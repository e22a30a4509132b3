package aggregate

import (
	"strings"
	"unicode"
)

// Stop words stripped from dedup keys. The two exchanges phrase the
// same question with minor grammatical differences ("Will BTC hit
// $100K?" vs "btc hit 100k"); dropping filler words lets those collide.
var stopWords = map[string]struct{}{
	"will": {}, "the": {}, "by": {}, "in": {}, "on": {}, "of": {}, "a": {}, "an": {},
}

// Key reduces a market title to its canonical dedup form: lowercase,
// alphanumerics only, stop words removed. Digits are retained, so two
// titles only collide when their numeric terms match too.
func Key(name string) string {
	var b strings.Builder
	var word strings.Builder

	flush := func() {
		if word.Len() == 0 {
			return
		}
		w := word.String()
		word.Reset()
		if _, stop := stopWords[w]; stop {
			return
		}
		b.WriteString(w)
	}

	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			word.WriteRune(r)
			continue
		}
		flush()
	}
	flush()

	return b.String()
}
