package connectors

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/louisbranch/drivechain/internal/driver/subject"
)

// suggestPath proposes a correction for a path that does not exist on subj:
// the existing prefix plus the closest key at the first missing segment.
// It returns "" when nothing is close enough.
func suggestPath(subj any, path any) string {
	segments := subject.ParsePath(path)
	current := subj
	for i, segment := range segments {
		next, ok := subject.Member(current, segment)
		if ok {
			current = next
			continue
		}
		best := closestKey(segment, subject.Keys(current))
		if best == "" {
			return ""
		}
		return strings.Join(append(append([]string(nil), segments[:i]...), best), ".")
	}
	return ""
}

func closestKey(target string, keys []string) string {
	limit := max(2, len(target)/3)
	best, bestDistance := "", limit+1
	for _, key := range keys {
		distance := levenshtein.ComputeDistance(strings.ToLower(target), strings.ToLower(key))
		if distance < bestDistance {
			best, bestDistance = key, distance
		}
	}
	return best
}
