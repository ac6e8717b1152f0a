package pricing

import "math"

// SplitPlanStep is one tranche of a split order.
type SplitPlanStep struct {
	Index             int     `json:"index"`
	AmountIn          float64 `json:"amountIn"`
	ExpectedOut       float64 `json:"expectedOut"`
	ExpectedImpactPct float64 `json:"expectedImpactPct"`
}

// SplitResult compares a single-shot trade against the same total executed
// as equal tranches against one pool.
type SplitResult struct {
	Single            Quote           `json:"single"`
	Plan              []SplitPlanStep `json:"plan"`
	SplitTotalOut     float64         `json:"splitTotalOut"`
	SplitAvgImpactPct float64         `json:"splitAvgImpactPct"`
}

// MaxTrancheImpactPct returns the largest absolute tranche impact.
func (r SplitResult) MaxTrancheImpactPct() float64 {
	worst := 0.0
	for _, step := range r.Plan {
		worst = math.Max(worst, math.Abs(step.ExpectedImpactPct))
	}
	return worst
}

// SplitPlan partitions total into parts equal tranches. Each tranche is quoted
// against the curve left behind by the previous one.
func SplitPlan(c Curve, side Side, total float64, parts int) (SplitResult, error) {
	n, err := NormalizeCurve(c)
	if err != nil {
		return SplitResult{}, err
	}
	if !positive(total) {
		return SplitResult{}, inputError("totalAmountIn must be a number > 0")
	}
	if parts < MinParts || parts > MaxParts {
		return SplitResult{}, inputError("parts must be an integer in [2, 50]")
	}

	single, err := QuoteSide(n, side, total)
	if err != nil {
		return SplitResult{}, err
	}

	step := total / float64(parts)
	plan := make([]SplitPlanStep, 0, parts)
	running := n
	var totalOut, impactSum float64

	for i := 0; i < parts; i++ {
		q, err := QuoteSide(running, side, step)
		if err != nil {
			return SplitResult{}, err
		}
		totalOut += q.AmountOut
		impactSum += math.Abs(q.PriceImpactPct)
		plan = append(plan, SplitPlanStep{
			Index:             i + 1,
			AmountIn:          step,
			ExpectedOut:       q.AmountOut,
			ExpectedImpactPct: q.PriceImpactPct,
		})
		running = q.NextCurve
	}

	return SplitResult{
		Single:            single,
		Plan:              plan,
		SplitTotalOut:     totalOut,
		SplitAvgImpactPct: impactSum / float64(parts),
	}, nil
}
