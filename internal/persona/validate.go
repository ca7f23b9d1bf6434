package persona

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-engine/internal/model"
)

// WeightTolerance is the allowed deviation of the weight sum from 1.
const WeightTolerance = 0.01

// ErrInvalid matches every *ValidationError.
var ErrInvalid = eris.New("persona: invalid")

// ValidationError lists every problem found in a persona.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "persona: invalid: " + strings.Join(e.Problems, "; ")
}

// Is makes errors.Is(err, ErrInvalid) true.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// Validate checks a persona's invariants. It returns nil or a
// *ValidationError.
func Validate(p model.Persona) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(p.Name) == "" {
		add("name is required")
	}

	checkRange := func(name string, r *model.Range) {
		if r == nil {
			return
		}
		if math.IsNaN(r.Min) || math.IsNaN(r.Max) || r.Min >= r.Max {
			add("%s: min (%v) must be less than max (%v)", name, r.Min, r.Max)
		}
	}
	checkRange("companySizeRange", p.Criteria.CompanySizeRange)
	checkRange("revenueRange", p.Criteria.RevenueRange)

	populated := make(map[string]bool)
	for _, c := range Criteria(p) {
		populated[c.Dimension] = true
	}
	if len(populated) == 0 {
		add("at least one criterion is required")
	}

	for _, d := range dimensions {
		w := d.weight(p.Weights)
		switch {
		case math.IsNaN(w) || math.IsInf(w, 0):
			add("weights.%s must be a finite number", d.name)
		case w < 0:
			add("weights.%s must not be negative", d.name)
		case w > 0 && !populated[d.name]:
			add("weights.%s is %v but no %s criterion is set", d.name, w, d.name)
		}
	}

	if sum := p.Weights.Sum(); math.Abs(sum-1) > WeightTolerance {
		add("weights must sum to 1.0 (±%.2f), got %.4f", WeightTolerance, sum)
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
