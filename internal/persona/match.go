package persona

import (
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/sells-group/lead-engine/internal/model"
	"github.com/sells-group/lead-engine/internal/tier"
)

// Match scores profile (and the contact's title) against p. Unknown
// attributes score 0 and the remaining weights are not renormalized.
func Match(profile model.EnrichedCompany, contact model.Contact, p model.Persona) model.PersonaMatch {
	return matchAt(profile, contact, p, time.Now().UTC())
}

// MatchAll scores profile against every persona, preserving persona order.
func MatchAll(profile model.EnrichedCompany, contact model.Contact, personas []model.Persona) []model.PersonaMatch {
	now := time.Now().UTC()
	out := make([]model.PersonaMatch, len(personas))
	for i, p := range personas {
		out[i] = matchAt(profile, contact, p, now)
	}
	return out
}

func matchAt(profile model.EnrichedCompany, contact model.Contact, p model.Persona, now time.Time) model.PersonaMatch {
	criteria := Criteria(p)
	matches := make([]model.CriterionMatch, 0, len(criteria))

	var total float64
	for _, c := range criteria {
		ok, actual := evaluate(c, profile, contact)
		cm := model.CriterionMatch{
			CriterionName: c.Dimension,
			Kind:          string(c.Kind),
			Matched:       ok,
			ActualValue:   actual,
			Weight:        c.Weight,
		}
		if ok {
			cm.Contribution = round2(100 * c.Weight)
			total += c.Weight
		}
		matches = append(matches, cm)
	}

	score := round2(math.Max(0, math.Min(100, 100*total)))
	return model.PersonaMatch{
		PersonaID:       p.ID,
		BadgeScanID:     contact.ID,
		FitScore:        score,
		CriteriaMatches: matches,
		Tier:            tier.Classify(score),
		CalculatedAt:    now,
	}
}

// BestMatch returns the highest-scoring match. Ties go to the earliest
// entry, so callers pass matches in persona insertion order. Nil for an
// empty slice.
func BestMatch(matches []model.PersonaMatch) *model.PersonaMatch {
	var best *model.PersonaMatch
	for i := range matches {
		if best == nil || matches[i].FitScore > best.FitScore {
			best = &matches[i]
		}
	}
	return best
}

// evaluate reports whether c matched and the profile value it looked at.
func evaluate(c Criterion, profile model.EnrichedCompany, contact model.Contact) (bool, any) {
	switch c.Kind {
	case KindRange:
		v, ok := numeric(c.Dimension, profile)
		if !ok {
			return false, nil
		}
		return matchRange(*c.Range, v), v
	case KindSet:
		v := scalar(c.Dimension, profile)
		if v == "" {
			return false, nil
		}
		return matchSet(c.Values, v), v
	case KindAnySet:
		vs := multi(c.Dimension, profile)
		if len(vs) == 0 {
			return false, nil
		}
		return matchAnySet(c.Values, vs), vs
	case KindKeyword:
		title := strings.TrimSpace(contact.Title)
		if title == "" {
			return false, nil
		}
		return matchKeyword(c.Values, title), title
	}
	return false, nil
}

func numeric(dim string, p model.EnrichedCompany) (float64, bool) {
	switch dim {
	case DimCompanySize:
		if p.EmployeeCount != nil {
			return float64(*p.EmployeeCount), true
		}
	case DimRevenue:
		if p.Revenue != nil {
			return *p.Revenue, true
		}
	}
	return 0, false
}

func scalar(dim string, p model.EnrichedCompany) string {
	switch dim {
	case DimIndustry:
		return strings.TrimSpace(p.Industry)
	case DimFundingStage:
		return strings.TrimSpace(p.FundingStage)
	}
	return ""
}

func multi(dim string, p model.EnrichedCompany) []string {
	switch dim {
	case DimTechnologies:
		return nonBlank(p.Technologies)
	case DimGeography:
		return geographyTerms(p.Headquarters)
	}
	return nil
}

// geographyTerms returns the full headquarters string followed by each of
// its comma-separated parts.
func geographyTerms(hq string) []string {
	hq = strings.TrimSpace(hq)
	if hq == "" {
		return nil
	}
	terms := []string{hq}
	if strings.Contains(hq, ",") {
		terms = append(terms, nonBlank(strings.Split(hq, ","))...)
	}
	return terms
}

func matchRange(r model.Range, v float64) bool {
	return r.Contains(v)
}

func matchSet(values []string, v string) bool {
	for _, want := range values {
		if strings.EqualFold(strings.TrimSpace(want), v) {
			return true
		}
	}
	return false
}

func matchAnySet(values, actual []string) bool {
	for _, a := range actual {
		if matchSet(values, strings.TrimSpace(a)) {
			return true
		}
	}
	return false
}

// matchKeyword reports whether any wanted title appears in title as a run of
// whole words.
func matchKeyword(values []string, title string) bool {
	have := words(title)
	for _, want := range values {
		if w := words(want); len(w) > 0 && containsRun(have, w) {
			return true
		}
	}
	return false
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsRun(have, want []string) bool {
	for i := 0; i+len(want) <= len(have); i++ {
		match := true
		for j := range want {
			if have[i+j] != want[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
