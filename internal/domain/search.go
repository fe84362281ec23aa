package domain

import (
	"sort"
	"strings"
)

// MatchNames filters names by a case-insensitive substring match on query
// and returns at most limit of them. Names starting with the query sort
// before names that only contain it; ties sort alphabetically. An empty
// query matches every name.
func MatchNames(names []string, query string, limit int) []string {
	if limit <= 0 {
		return []string{}
	}

	q := strings.ToLower(strings.TrimSpace(query))
	matches := make([]matchedName, 0, len(names))
	for _, name := range names {
		lower := strings.ToLower(name)
		if q != "" && !strings.Contains(lower, q) {
			continue
		}
		matches = append(matches, matchedName{
			name:     name,
			isPrefix: q != "" && strings.HasPrefix(lower, q),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].isPrefix != matches[j].isPrefix {
			return matches[i].isPrefix
		}
		return matches[i].name < matches[j].name
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.name)
	}
	return out
}

type matchedName struct {
	name     string
	isPrefix bool
}
