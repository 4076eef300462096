package resolver

import (
	"strings"

	"github.com/xrash/smetrics"

	"Scout/internal/model"
)

// Jaro-Winkler parameters: the prefix boost applies once the plain Jaro
// score exceeds boostThreshold, over at most prefixSize leading characters.
const (
	boostThreshold = 0.7
	prefixSize     = 4
)

// Score returns the case-insensitive Jaro-Winkler similarity of a and b in [0,1].
func Score(a, b string) float64 {
	return smetrics.JaroWinkler(strings.ToLower(a), strings.ToLower(b), boostThreshold, prefixSize)
}

// BestMatch scores query against every catalog name and returns the highest
// scoring record. Ties keep the earliest record. ok is false for an empty catalog.
func BestMatch(query string, catalog []model.SymbolRecord) (best model.SymbolRecord, score float64, ok bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	score = -1
	for _, rec := range catalog {
		s := smetrics.JaroWinkler(q, strings.ToLower(rec.Name), boostThreshold, prefixSize)
		if s > score {
			best, score, ok = rec, s, true
		}
	}
	if !ok {
		return model.SymbolRecord{}, 0, false
	}
	return best, score, true
}
