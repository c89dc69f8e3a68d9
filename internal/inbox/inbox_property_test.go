package inbox

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"trade-journal/internal/identity"
	"trade-journal/internal/models"
)

// Property: every candidate is either imported or counted as a duplicate,
// and no two imported rows share a dedup key.
func TestProperty_ImportDedup(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	idGen := gen.OneConstOf("", "A", "B", "C", "D")
	sourceGen := gen.OneConstOf(models.SourceIBKR, models.SourceKraken)

	properties.Property("Imported plus duplicates accounts for every candidate", prop.ForAll(
		func(ids []string, sources []models.Source) bool {
			candidates := make([]models.Candidate, len(ids))
			for i, id := range ids {
				c := validCandidate(id)
				if len(sources) > 0 {
					c.Source = sources[i%len(sources)]
				}
				candidates[i] = c
			}

			res := ImportCandidates("owner", candidates, nil, nil)
			if res.Imported+res.SkippedDuplicates != len(candidates) || len(res.Rows) != res.Imported {
				return false
			}

			seen := map[identity.DedupKey]bool{}
			for _, r := range res.Rows {
				key, ok := identity.KeyOf(r.Candidate)
				if !ok {
					continue
				}
				if seen[key] {
					return false
				}
				seen[key] = true
			}
			return true
		},
		gen.SliceOf(idGen),
		gen.SliceOf(sourceGen),
	))

	properties.Property("Re-importing an imported batch skips every keyed candidate", prop.ForAll(
		func(ids []string) bool {
			candidates := make([]models.Candidate, len(ids))
			keyed := 0
			for i, id := range ids {
				candidates[i] = validCandidate(id)
				if id != "" {
					keyed++
				}
			}

			first := ImportCandidates("owner", candidates, nil, nil)
			second := ImportCandidates("owner", candidates, nil, first.Rows)
			return second.SkippedDuplicates == keyed && second.Imported == len(ids)-keyed
		},
		gen.SliceOf(idGen),
	))

	properties.TestingRun(t)
}
