package scout

import (
	"fmt"
	"strings"
)

// Normalize trims inputs, strips leading @ from usernames and drops blanks
// and case-insensitive repeats. Order is preserved.
func (p JobParameters) Normalize() JobParameters {
	p.Queries = cleanList(p.Queries, func(s string) string { return s })
	p.Usernames = cleanList(p.Usernames, func(s string) string { return strings.TrimPrefix(s, "@") })
	return p
}

// Validate reports whether the parameters can be run.
func (p JobParameters) Validate() error {
	if p.Limit < 0 {
		return fmt.Errorf("limit must not be negative: %w", ErrInvalidJob)
	}
	switch p.Kind {
	case JobKindTikTokSearch:
		if len(p.Queries) == 0 {
			return fmt.Errorf("%s needs at least one query: %w", p.Kind, ErrInvalidJob)
		}
	case JobKindInstagramExpand, JobKindTikTokAnalyze:
		if len(p.Usernames) == 0 {
			return fmt.Errorf("%s needs at least one username: %w", p.Kind, ErrInvalidJob)
		}
	default:
		return fmt.Errorf("unknown kind %q: %w", p.Kind, ErrInvalidJob)
	}
	return nil
}

func cleanList(in []string, clean func(string) string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(clean(strings.TrimSpace(v)))
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
