package metrics

import (
	"fmt"
	"sort"
	"strings"
)

// Entity-level sequence-labeling metrics over BIO-tagged label sequences,
// comparing predicted tag sequences against references. A predicted entity
// counts as correct only when type and span both match.

type entity struct {
	label string
	start int
	end   int
}

type tally struct {
	correct   int
	predicted int
	actual    int
}

func PrecisionScore(references, predictions [][]string) float64 {
	t := tallyEntities(references, predictions, "")
	if t.predicted == 0 {
		return 0
	}
	return float64(t.correct) / float64(t.predicted)
}

func RecallScore(references, predictions [][]string) float64 {
	t := tallyEntities(references, predictions, "")
	if t.actual == 0 {
		return 0
	}
	return float64(t.correct) / float64(t.actual)
}

func F1Score(references, predictions [][]string) float64 {
	p := PrecisionScore(references, predictions)
	r := RecallScore(references, predictions)
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// ClassificationReport returns a per-type precision/recall/F1/support table,
// one line per entity type sorted alphabetically, with a micro average last.
func ClassificationReport(references, predictions [][]string) string {
	types := map[string]struct{}{}
	for _, seq := range references {
		for _, e := range extractEntities(seq) {
			types[e.label] = struct{}{}
		}
	}
	for _, seq := range predictions {
		for _, e := range extractEntities(seq) {
			types[e.label] = struct{}{}
		}
	}

	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-12s %9s %9s %9s %9s\n", "", "precision", "recall", "f1-score", "support"))
	for _, name := range names {
		t := tallyEntities(references, predictions, name)
		p, r, f := scoresFromTally(t)
		b.WriteString(fmt.Sprintf("%-12s %9.2f %9.2f %9.2f %9d\n", name, p, r, f, t.actual))
	}

	total := tallyEntities(references, predictions, "")
	p, r, f := scoresFromTally(total)
	b.WriteString(fmt.Sprintf("%-12s %9.2f %9.2f %9.2f %9d\n", "micro avg", p, r, f, total.actual))

	return b.String()
}

// HELPERS

func scoresFromTally(t tally) (float64, float64, float64) {
	p := 0.0
	if t.predicted > 0 {
		p = float64(t.correct) / float64(t.predicted)
	}
	r := 0.0
	if t.actual > 0 {
		r = float64(t.correct) / float64(t.actual)
	}
	f := 0.0
	if p+r > 0 {
		f = 2 * p * r / (p + r)
	}
	return p, r, f
}

// tallyEntities counts matching entities across all sequence pairs,
// optionally restricted to one entity type.
func tallyEntities(references, predictions [][]string, onlyType string) tally {
	t := tally{}
	for i := range references {
		refEntities := extractEntities(references[i])
		var predEntities []entity
		if i < len(predictions) {
			predEntities = extractEntities(predictions[i])
		}

		predSet := map[entity]struct{}{}
		for _, e := range predEntities {
			if onlyType != "" && e.label != onlyType {
				continue
			}
			predSet[e] = struct{}{}
			t.predicted++
		}
		for _, e := range refEntities {
			if onlyType != "" && e.label != onlyType {
				continue
			}
			t.actual++
			if _, ok := predSet[e]; ok {
				t.correct++
			}
		}
	}
	return t
}

// extractEntities converts a BIO tag sequence into typed spans. An I- tag
// without a matching open entity starts a new one, matching the lenient
// seqeval default.
func extractEntities(tags []string) []entity {
	entities := []entity{}
	openLabel := ""
	openStart := 0

	closeOpen := func(end int) {
		if openLabel != "" {
			entities = append(entities, entity{label: openLabel, start: openStart, end: end})
			openLabel = ""
		}
	}

	for i, tag := range tags {
		switch {
		case tag == "O" || tag == "":
			closeOpen(i)
		case strings.HasPrefix(tag, "B-"):
			closeOpen(i)
			openLabel = tag[2:]
			openStart = i
		case strings.HasPrefix(tag, "I-"):
			label := tag[2:]
			if openLabel != label {
				closeOpen(i)
				openLabel = label
				openStart = i
			}
		default:
			// untyped tag: treat the tag itself as the entity type
			if openLabel != tag {
				closeOpen(i)
				openLabel = tag
				openStart = i
			}
		}
	}
	closeOpen(len(tags))

	return entities
}
