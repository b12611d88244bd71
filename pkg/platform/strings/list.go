// Package strings normalizes list-valued settings.
package strings

import "strings"

// SplitList flattens comma-separated entries, trims each item and drops
// empty ones and repeats, keeping first-seen order. Environment overrides
// arrive as one comma-joined string, files as proper lists; both end up
// the same.
func SplitList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		for _, item := range strings.Split(v, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			if _, ok := seen[item]; ok {
				continue
			}
			seen[item] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}
