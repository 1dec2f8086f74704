package model

// ImpactWeightSet holds the per-event point deltas used when scoring.
// Gains are added; losses are stored as positive magnitudes and subtracted.
type ImpactWeightSet struct {
	EMIRepayment         int `json:"emi_repayment"`
	CCFullPayment        int `json:"cc_full_payment"`
	LatePayment          int `json:"late_payment"`
	InquiryPenalty       int `json:"inquiry_penalty"`
	NewAccountPenalty    int `json:"new_account_penalty"`
	LargePurchasePenalty int `json:"large_purchase_penalty"`
}

// WeightsSource records where the weights of a scoring run came from.
type WeightsSource string

const (
	WeightsFromAdvisor WeightsSource = "advisor"
	WeightsFromDefault WeightsSource = "default"
)

// MaxWeight is the largest impact weight accepted from a resolver.
const MaxWeight = 1000

// Normalize replaces entries outside [0, MaxWeight] with the matching entry
// of fallback.
func (w ImpactWeightSet) Normalize(fallback ImpactWeightSet) ImpactWeightSet {
	pick := func(v, def int) int {
		if v < 0 || v > MaxWeight {
			return def
		}
		return v
	}
	return ImpactWeightSet{
		EMIRepayment:         pick(w.EMIRepayment, fallback.EMIRepayment),
		CCFullPayment:        pick(w.CCFullPayment, fallback.CCFullPayment),
		LatePayment:          pick(w.LatePayment, fallback.LatePayment),
		InquiryPenalty:       pick(w.InquiryPenalty, fallback.InquiryPenalty),
		NewAccountPenalty:    pick(w.NewAccountPenalty, fallback.NewAccountPenalty),
		LargePurchasePenalty: pick(w.LargePurchasePenalty, fallback.LargePurchasePenalty),
	}
}
