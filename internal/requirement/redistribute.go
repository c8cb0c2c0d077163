package requirement

import "fmt"

// Policy selects how a group-level total is split over its rows.
type Policy string

const (
	// PolicyCeil gives every row ceil(total/rows). The stored sum can exceed the
	// requested total when rows does not divide it.
	PolicyCeil Policy = "ceil"
	// PolicyExact spreads the remainder over the first rows so the sum equals the total.
	PolicyExact Policy = "exact"
)

// ParsePolicy maps a configuration value to a Policy, defaulting to PolicyCeil.
func ParsePolicy(raw string) Policy {
	if Policy(raw) == PolicyExact {
		return PolicyExact
	}
	return PolicyCeil
}

// Redistribution is the per-row split of a group edit.
type Redistribution struct {
	Requested int       `json:"requested"`
	Applied   int       `json:"applied"`
	PerRow    []int     `json:"per_row"`
	Policy    Policy    `json:"policy"`
	Warnings  []Warning `json:"warnings,omitempty"`
}

// Redistribute splits total across rows according to policy.
func Redistribute(total, rows int, policy Policy) Redistribution {
	if policy != PolicyExact {
		policy = PolicyCeil
	}
	res := Redistribution{Requested: total, Policy: policy}
	if total < 0 {
		res.Warnings = append(res.Warnings, negativeWarning("", "group total", total))
		total = 0
		res.Requested = 0
	}
	if rows <= 0 {
		return res
	}

	res.PerRow = make([]int, rows)
	base, rem := total/rows, total%rows
	for i := range res.PerRow {
		switch {
		case policy == PolicyCeil && rem > 0:
			res.PerRow[i] = base + 1
		case policy == PolicyExact && i < rem:
			res.PerRow[i] = base + 1
		default:
			res.PerRow[i] = base
		}
		res.Applied += res.PerRow[i]
	}

	if res.Applied != total {
		res.Warnings = append(res.Warnings, Warning{
			Code:    WarnInconsistentGroupRounding,
			Message: fmt.Sprintf("%d split over %d rows stores %d", total, rows, res.Applied),
		})
	}
	return res
}
