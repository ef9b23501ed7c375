package domain

import (
	"strings"
	"unicode"
)

// PreferenceKeyPrefix namespaces widget preference entries in the backing
// store.
const PreferenceKeyPrefix = "widget-pref:"

// PreferenceID identifies one UI widget flag. Empty parts are allowed;
// e.g. a checklist item outside any campaign leaves Campaign blank.
type PreferenceID struct {
	Surface   string `json:"surface"`
	Account   string `json:"account"`
	Campaign  string `json:"campaign"`
	Parameter string `json:"parameter"`
}

// Key derives the storage key for the preference. Each part is lower-cased
// and every run of non-alphanumeric characters collapses into one "-".
func (id PreferenceID) Key() string {
	parts := []string{
		normalizePart(id.Surface),
		normalizePart(id.Account),
		normalizePart(id.Campaign),
		normalizePart(id.Parameter),
	}
	return PreferenceKeyPrefix + strings.Join(parts, ":")
}

// IsPreferenceKey reports whether a backing store key belongs to the
// preference namespace.
func IsPreferenceKey(key string) bool {
	return strings.HasPrefix(key, PreferenceKeyPrefix)
}

// EncodePreference returns the persisted form of a flag.
func EncodePreference(enabled bool) string {
	if enabled {
		return "1"
	}
	return "0"
}

// DecodePreference parses a persisted flag. Anything other than "0"
// counts as enabled, matching the default for absent entries.
func DecodePreference(raw string) bool {
	return raw != "0"
}

func normalizePart(s string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}
