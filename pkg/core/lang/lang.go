// Package lang picks display strings out of VGMdb's multi-language name maps.
package lang

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Preference is an ordered list of language tags, most preferred first.
type Preference []string

// DefaultPreference is used when no priority is configured.
var DefaultPreference = Preference{"en", "ja-latn", "ja"}

// TrackNameAliases maps preference tags to the keys VGMdb uses for track names.
var TrackNameAliases = map[string]string{
	"en":      "English",
	"ja-latn": "Romaji",
	"ja":      "Japanese",
}

// ParsePreference splits a comma separated list such as "en,ja-latn,ja".
func ParsePreference(s string) (Preference, error) {
	var pref Preference
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		pref = append(pref, part)
	}
	if err := pref.Validate(); err != nil {
		return nil, err
	}
	return pref, nil
}

// Validate checks that the preference is non-empty and every tag is well formed.
func (p Preference) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("lang: language preference must not be empty")
	}
	for _, tag := range p {
		if _, err := language.Parse(tag); err != nil {
			return fmt.Errorf("lang: invalid language tag %q: %w", tag, err)
		}
	}
	return nil
}

// Resolve returns the value for the first preferred tag present in names,
// otherwise the first available value, otherwise "".
func Resolve(pref Preference, names NameMap) string {
	return ResolveAliased(pref, names, nil)
}

// ResolveAliased behaves like Resolve but also tries aliases[tag] for every
// preferred tag before moving on to the next one.
func ResolveAliased(pref Preference, names NameMap, aliases map[string]string) string {
	for _, tag := range pref {
		if v, ok := names.Get(tag); ok {
			return v
		}
		if alias, ok := aliases[strings.ToLower(tag)]; ok {
			if v, ok := names.Get(alias); ok {
				return v
			}
		}
	}
	v, _ := names.First()
	return v
}
