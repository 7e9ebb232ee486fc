package store

import "strings"

// parseTags splits the space-separated tag column.
func parseTags(s string) []string {
	return strings.Fields(s)
}

// joinTags formats tags the way the collection stores them: space
// separated with a leading and trailing space.
func joinTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return " " + strings.Join(tags, " ") + " "
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func removeTag(tags []string, tag string) []string {
	kept := tags[:0:0]
	for _, t := range tags {
		if !strings.EqualFold(t, tag) {
			kept = append(kept, t)
		}
	}
	return kept
}
