package domain

import "sort"

// DetectNew drops candidates whose URL is already known, keeps the first occurrence of repeated URLs,
// and orders the result: dated items newest first, then undated items in their original order.
func DetectNew(knownURLs map[string]struct{}, candidates []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(candidates))
	var dated, undated []Candidate

	for _, c := range candidates {
		if _, ok := knownURLs[c.URL]; ok {
			continue
		}
		if _, ok := seen[c.URL]; ok {
			continue
		}
		seen[c.URL] = struct{}{}

		if c.HasPublishedAt() {
			dated = append(dated, c)
		} else {
			undated = append(undated, c)
		}
	}

	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].PublishedAt.After(dated[j].PublishedAt)
	})

	result := make([]Candidate, 0, len(dated)+len(undated))
	result = append(result, dated...)
	return append(result, undated...)
}
