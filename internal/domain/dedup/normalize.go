package dedup

import (
	"strings"
	"unicode"
)

func isEmojiRune(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // pictographs, emoticons, symbols
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r == 0xFE0F || r == 0x200D: // variation selector, zero-width joiner
		return true
	case r >= 0x2B00 && r <= 0x2BFF:
		return true
	}
	return false
}

// NormalizeName lowercases the name, strips emoji that desk staff decorate
// entries with, and collapses runs of whitespace to a single space.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if isEmojiRune(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(strings.ToLower(b.String())), " ")
}

// NormalizePhone keeps digits only, so "+7 (999) 123-45-67" and
// "89991234567" can be compared by suffix or bucket.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NamesAreSimilar reports whether two normalized names likely refer to the
// same person: one contains the other, or they share a word longer than
// three runes. Short words (initials, particles) never count.
func NamesAreSimilar(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	wordsA := strings.Fields(a)
	for _, wa := range wordsA {
		if len([]rune(wa)) <= 3 {
			continue
		}
		for _, wb := range strings.Fields(b) {
			if wa == wb {
				return true
			}
		}
	}
	return false
}
