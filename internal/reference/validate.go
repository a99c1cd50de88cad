package reference

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// ShadowedCorrection describes a correction that can never win because an
// earlier pattern is a substring of it and maps to a different city.
type ShadowedCorrection struct {
	Earlier Correction
	Later   Correction
}

// Validate checks the tables for inconsistencies that would make results
// depend on table order or produce unusable lookups. It is meant to run once
// at startup, never per row.
func (t *Tables) Validate() error {
	var problems []string

	seen := make(map[string]int, len(t.Corrections))
	for i, c := range t.Corrections {
		if c.Pattern == "" {
			problems = append(problems, fmt.Sprintf("correction %d has an empty pattern", i))
			continue
		}
		if c.City == "" {
			problems = append(problems, fmt.Sprintf("correction %q has an empty city", c.Pattern))
		}
		if j, ok := seen[c.Pattern]; ok {
			problems = append(problems, fmt.Sprintf("correction %q declared twice (entries %d and %d)", c.Pattern, j, i))
			continue
		}
		seen[c.Pattern] = i
	}

	for _, s := range t.Shadowed() {
		problems = append(problems, fmt.Sprintf(
			"correction %q -> %q is shadowed by earlier %q -> %q",
			s.Later.Pattern, s.Later.City, s.Earlier.Pattern, s.Earlier.City,
		))
	}

	// A corrected city must survive another pass through the table unchanged.
	for _, city := range t.targets() {
		if got, ok := t.Correct(city); ok && got != city {
			problems = append(problems, fmt.Sprintf("city %q is rewritten to %q by the corrections", city, got))
		}
	}

	digits := make([]string, 0, len(t.Regions))
	for digit := range t.Regions {
		digits = append(digits, digit)
	}
	sort.Strings(digits)
	for _, digit := range digits {
		if len(digit) != 1 || digit[0] < '0' || digit[0] > '9' {
			problems = append(problems, fmt.Sprintf("region key %q is not a single digit", digit))
		}
	}

	if len(problems) > 0 {
		return eris.Errorf("reference: invalid tables:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}

// Shadowed returns every pair of corrections (i < j) where pattern i is a
// substring of pattern j with a different target. Any input containing
// pattern j also contains pattern i, so entry j is dead and the outcome
// would change if the two were reordered.
func (t *Tables) Shadowed() []ShadowedCorrection {
	var out []ShadowedCorrection
	for i, earlier := range t.Corrections {
		if earlier.Pattern == "" {
			continue
		}
		for _, later := range t.Corrections[i+1:] {
			if later.Pattern == earlier.Pattern {
				continue
			}
			if strings.Contains(later.Pattern, earlier.Pattern) && later.City != earlier.City {
				out = append(out, ShadowedCorrection{Earlier: earlier, Later: later})
			}
		}
	}
	return out
}

func (t *Tables) targets() []string {
	out := append([]string(nil), t.Cities...)
	for _, c := range t.Corrections {
		if c.City != "" && !contains(out, c.City) {
			out = append(out, c.City)
		}
	}
	return out
}
