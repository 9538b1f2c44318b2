package scout

import (
	"sort"
	"strings"
)

// ParseDedupeScope maps user input onto a scope, defaulting to per-campaign.
func ParseDedupeScope(s string) (DedupeScope, bool) {
	switch DedupeScope(strings.ToLower(strings.TrimSpace(s))) {
	case "", DedupePerCampaign:
		return DedupePerCampaign, true
	case DedupeGlobal:
		return DedupeGlobal, true
	default:
		return "", false
	}
}

// FindDuplicates returns the IDs of candidates that repeat an earlier one.
// Per-campaign scope keys on campaign and username; global scope on username
// alone. The oldest record of each key survives.
func FindDuplicates(candidates []Candidate, scope DedupeScope) []string {
	ordered := make([]Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	seen := make(map[string]struct{}, len(ordered))
	var dups []string
	for _, c := range ordered {
		username := strings.ToLower(strings.TrimSpace(c.Username))
		if username == "" {
			continue
		}
		key := username
		if scope != DedupeGlobal {
			key = c.CampaignID + "_" + username
		}
		if _, ok := seen[key]; ok {
			dups = append(dups, c.ID)
			continue
		}
		seen[key] = struct{}{}
	}
	return dups
}
