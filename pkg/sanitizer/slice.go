package sanitizer

import "sort"

// SortedUnique normalizes names, drops empty values and duplicates, and
// returns the rest sorted.
func SortedUnique(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))

	for _, item := range items {
		name := NormalizeName(item)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}

	sort.Strings(result)
	return result
}
