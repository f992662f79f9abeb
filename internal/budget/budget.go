package budget

// Outcome classifies a plan for the confirmation dialog a caller presents.
type Outcome string

const (
	// OutcomeFull means the whole request is affordable.
	OutcomeFull Outcome = "full"
	// OutcomePartial means only a prefix of the request is affordable.
	OutcomePartial Outcome = "partial"
	// OutcomeNone means nothing is affordable; the caller must hard-stop.
	OutcomeNone Outcome = "none"
)

// Result is the outcome of planning a batch against a balance.
type Result struct {
	Requested           int  `json:"requested"`
	AffordableCount     int  `json:"affordable_count"`
	CostPerUnit         int  `json:"cost_per_unit"`
	TotalCost           int  `json:"total_cost"`
	Available           int  `json:"available"`
	IsFullyOutOfCredits bool `json:"is_fully_out_of_credits"`
}

// Outcome reports which dialog the plan calls for.
func (r Result) Outcome() Outcome {
	switch {
	case r.IsFullyOutOfCredits || r.AffordableCount == 0:
		return OutcomeNone
	case r.AffordableCount < r.Requested:
		return OutcomePartial
	default:
		return OutcomeFull
	}
}

// Plan clips requestedCount to what availableCredits can pay for when every
// unit costs costPerUnit credits. A non-positive cost is treated as 1.
//
// IsFullyOutOfCredits is set when the balance cannot cover a single unit,
// which is distinct from affording some but not all of the request.
func Plan(requestedCount, availableCredits, costPerUnit int) Result {
	if costPerUnit <= 0 {
		costPerUnit = 1
	}
	if requestedCount < 0 {
		requestedCount = 0
	}

	affordable := 0
	if availableCredits > 0 {
		affordable = min(requestedCount, availableCredits/costPerUnit)
	}

	return Result{
		Requested:           requestedCount,
		AffordableCount:     affordable,
		CostPerUnit:         costPerUnit,
		TotalCost:           affordable * costPerUnit,
		Available:           availableCredits,
		IsFullyOutOfCredits: availableCredits <= 0 || availableCredits < costPerUnit,
	}
}

// PlanFlat plans per-item flat-cost work where one unit costs one credit.
func PlanFlat(requestedCount, availableCredits int) Result {
	return Plan(requestedCount, availableCredits, 1)
}

// CreditsForDuration returns ceil(durationMinutes / minutesPerCredit), the
// text-credit price of one script. Non-positive inputs are clamped so a
// script never costs less than one credit.
func CreditsForDuration(durationMinutes, minutesPerCredit int) int {
	if minutesPerCredit <= 0 {
		minutesPerCredit = 1
	}
	if durationMinutes <= 0 {
		return 1
	}
	return (durationMinutes + minutesPerCredit - 1) / minutesPerCredit
}
