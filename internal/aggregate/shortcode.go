package aggregate

import (
	"regexp"
	"strings"
	"unicode"
)

const shortCodeMax = 10

// Key terms worth keeping in a compact code: tickers and acronyms,
// currency amounts, bare numbers with magnitude suffixes, years.
var keyTermPattern = regexp.MustCompile(`[A-Z][A-Z0-9]+|\$[0-9]+(?:\.[0-9]+)?[KMBT]?|[0-9]+(?:\.[0-9]+)?[KMBT%]|20[0-9]{2}`)

// ShortCode derives a compact display identifier from a market title.
// Best-effort: it has no correctness contract beyond being short,
// uppercase and stable for a given title.
func ShortCode(name string) string {
	terms := keyTermPattern.FindAllString(name, -1)

	var b strings.Builder
	for _, term := range terms {
		for _, r := range term {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(r)
			}
		}
		if b.Len() >= shortCodeMax {
			break
		}
	}

	code := b.String()
	if code == "" {
		// No key terms; fall back to the first words of the title.
		for _, field := range strings.Fields(name) {
			for _, r := range field {
				if unicode.IsLetter(r) || unicode.IsDigit(r) {
					code += string(unicode.ToUpper(r))
				}
			}
			if len(code) >= shortCodeMax {
				break
			}
		}
	}

	code = strings.ToUpper(code)
	if len(code) > shortCodeMax {
		code = code[:shortCodeMax]
	}
	return code
}
