package fallback

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/aretw0/slotflow/pkg/domain"
)

var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\+91[\s-]?([6789]\d{9})`),
	regexp.MustCompile(`91[\s-]?([6789]\d{9})`),
	regexp.MustCompile(`\b([6789]\d{9})\b`),
	regexp.MustCompile(`\b([6789]\d{4})[\s-]?(\d{5})\b`),
}

// Phone extracts a ten-digit Indian mobile number into the "phone_number" field.
type Phone struct{}

func (Phone) Match(message string) domain.Extraction {
	message = strings.TrimSpace(message)
	if message == "" {
		return domain.Extraction{}
	}
	for _, re := range phonePatterns {
		m := re.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		phone := strings.Join(m[1:], "")
		if len(phone) == 10 && strings.ContainsRune("6789", rune(phone[0])) {
			return domain.Extraction{Fields: map[string]any{"phone_number": phone}}
		}
	}
	return domain.Extraction{}
}

var emailPattern = regexp.MustCompile(`\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`)

var emailPlaceholders = map[string]struct{}{
	"none@example.com":     {},
	"test@test.com":        {},
	"noreply@example.com":  {},
	"no-reply@example.com": {},
	"email@example.com":    {},
}

// Email extracts a lower-cased address into the "email" field, rejecting placeholders.
type Email struct{}

func (Email) Match(message string) domain.Extraction {
	candidate := strings.ToLower(strings.TrimSpace(emailPattern.FindString(message)))
	if candidate == "" {
		return domain.Extraction{}
	}
	if _, ok := emailPlaceholders[candidate]; ok {
		return domain.Extraction{}
	}
	addr, err := mail.ParseAddress(candidate)
	if err != nil {
		return domain.Extraction{}
	}
	return domain.Extraction{Fields: map[string]any{"email": addr.Address}}
}
