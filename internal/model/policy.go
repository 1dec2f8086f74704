package model

// Policy is the set of fixed payloads used whenever an advisory call is
// unavailable or returns something unusable.
type Policy struct {
	Weights ImpactWeightSet

	// ProvisionalPenalties are the only weights the first scoring pass uses.
	ProvisionalPenalties ImpactWeightSet

	GoalPlan GoalPlan
}

// DefaultPolicy returns the fallback values shared by every advisory call.
func DefaultPolicy() Policy {
	return Policy{
		Weights: ImpactWeightSet{
			EMIRepayment:         2,
			CCFullPayment:        5,
			LatePayment:          30,
			InquiryPenalty:       5,
			NewAccountPenalty:    10,
			LargePurchasePenalty: 15,
		},
		ProvisionalPenalties: ImpactWeightSet{
			InquiryPenalty:    5,
			NewAccountPenalty: 10,
		},
		GoalPlan: GoalPlan{
			PlanSteps:   []string{"Maintain on-time payments", "Reduce debt"},
			TargetScore: 750,
			Timeline:    "Unknown",
			Feasibility: "Unknown",
		},
	}
}

// DefaultWeights is shorthand for DefaultPolicy().Weights.
func DefaultWeights() ImpactWeightSet {
	return DefaultPolicy().Weights
}
