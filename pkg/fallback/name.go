package fallback

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/aretw0/slotflow/pkg/domain"
)

// BareNameConfidence is reported for a message that is only one or two
// words. It stays below the usual gate threshold, so such a guess never
// replaces a name given with an introduction.
const BareNameConfidence = 0.5

var (
	introducedName = regexp.MustCompile(`(?i)\b(?:my name is|my name's|name is|i am|i'm|im|this is|call me)\s+([a-z][a-z'-]+)(?:\s+([a-z][a-z'-]+))?`)
	bareName       = regexp.MustCompile(`(?i)^\s*([a-z][a-z'-]+)(?:\s+([a-z][a-z'-]+))?\s*[.!]?\s*$`)
)

var namePatterns = []struct {
	re         *regexp.Regexp
	confidence float64
}{
	{introducedName, 0},
	{bareName, BareNameConfidence},
}

var nameStopwords = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "yes": {}, "no": {}, "ok": {}, "okay": {},
	"thanks": {}, "thank": {}, "fine": {}, "good": {}, "here": {}, "interested": {},
	"looking": {}, "not": {}, "sure": {}, "the": {}, "a": {}, "an": {}, "and": {},
	"want": {}, "need": {}, "book": {}, "booking": {}, "service": {}, "car": {},
	"bike": {}, "please": {}, "sorry": {}, "what": {}, "why": {}, "how": {},
	"it's": {}, "its": {}, "it": {},
}

// Name extracts "first_name" and, when present, "last_name". Matches after an
// introduction report no confidence, leaving the caller's default in place.
type Name struct{}

func (Name) Match(message string) domain.Extraction {
	for _, p := range namePatterns {
		m := p.re.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		first := m[1]
		if isStopword(first) {
			continue
		}
		fields := map[string]any{"first_name": titleCase(first)}
		if last := m[2]; last != "" && !isStopword(last) {
			fields["last_name"] = titleCase(last)
		}
		return domain.Extraction{Fields: fields, Confidence: p.confidence}
	}
	return domain.Extraction{}
}

func isStopword(w string) bool {
	_, ok := nameStopwords[strings.ToLower(w)]
	return ok
}

func titleCase(w string) string {
	r := []rune(strings.ToLower(w))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
