package domain

import "strings"

// MaxSynonyms bounds how many synonyms a learner may keep per subject.
const MaxSynonyms = 32

// CleanSynonyms trims entries and drops empty ones and exact duplicates,
// keeping the first occurrence order.
func CleanSynonyms(synonyms []string) []string {
	out := make([]string, 0, len(synonyms))
	seen := make(map[string]bool, len(synonyms))
	for _, syn := range synonyms {
		syn = strings.TrimSpace(syn)
		if syn == "" || seen[syn] {
			continue
		}
		seen[syn] = true
		out = append(out, syn)
	}
	return out
}
