package leads

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9 ()\-.]{5,}[0-9]`)
)

// minPhoneDigits rejects short numbers such as ages or years.
const minPhoneDigits = 7

// Contact is what could be recovered from a contact answer.
type Contact struct {
	Email string
	Phone string
}

// Empty reports whether nothing was found.
func (c Contact) Empty() bool {
	return c.Email == "" && c.Phone == ""
}

// ExtractContact parses a dual-contact answer. It accepts the structured form
// {"email": "...", "phone": "..."} sent by form clients as well as free text.
func ExtractContact(text string) Contact {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "{") {
		var structured struct {
			Email string `json:"email"`
			Phone string `json:"phone"`
		}
		if err := json.Unmarshal([]byte(text), &structured); err == nil {
			return Contact{
				Email: strings.TrimSpace(structured.Email),
				Phone: normalizePhone(structured.Phone),
			}
		}
	}

	var c Contact
	if m := emailPattern.FindString(text); m != "" {
		c.Email = strings.TrimRight(m, ".")
		text = strings.Replace(text, m, " ", 1)
	}
	for _, m := range phonePattern.FindAllString(text, -1) {
		if p := normalizePhone(m); p != "" {
			c.Phone = p
			break
		}
	}
	return c
}

// normalizePhone keeps digits and a leading plus. Numbers with fewer than
// minPhoneDigits digits yield "".
func normalizePhone(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	digits := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			digits++
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	if digits < minPhoneDigits {
		return ""
	}
	return b.String()
}
