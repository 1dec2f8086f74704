package advisor

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"LuminCredit/internal/model"
)

// ErrMalformedReply is returned when the model reply carries no usable weights.
var ErrMalformedReply = errors.New("malformed advisor reply")

const systemPrompt = `You are a credit score logic engine.
Choose the score impact of common credit events for one user, given their current standing.

Rules:
- Lower scores (500-650): on-time payments weigh more (+6 to +12) to reward recovery.
- Higher scores (750+): on-time payments weigh less (+1 to +3).
- A missed payment hurts high scores most (-50 to -80) and low scores less (-20 to -40).

Reply with a single JSON object of non-negative integers:
  "emi_repayment":          points added for an on-time EMI
  "cc_full_payment":        points added for a full credit card payment
  "late_payment":           points deducted for a late payment
  "inquiry_penalty":        points deducted for a hard inquiry
  "new_account_penalty":    points deducted for a new account
  "large_purchase_penalty": points deducted for a utilization spike`

func userPrompt(rec *model.UserFinancialRecord, provisional int) string {
	history := "Unknown"
	if rec.PaymentHistory != nil {
		history = strconv.FormatFloat(*rec.PaymentHistory, 'f', -1, 64)
	}
	return fmt.Sprintf("User profile:\n- Estimated score: %d\n- Income: %.0f\n- Payment history: %s\n",
		provisional, rec.Income, history)
}

var weightKeys = []string{
	"emi_repayment",
	"cc_full_payment",
	"late_payment",
	"inquiry_penalty",
	"new_account_penalty",
	"large_purchase_penalty",
}

// parseWeights decodes a model reply. Missing or out-of-range entries take the
// fallback value; a reply with none of the keys is malformed.
func parseWeights(content string, fallback model.ImpactWeightSet) (model.ImpactWeightSet, error) {
	content = cleanMarkdownWrapper(content)

	var raw map[string]any
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return model.ImpactWeightSet{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}

	values := make(map[string]int, len(weightKeys))
	for _, k := range weightKeys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		n, ok := toInt(v)
		if !ok {
			continue
		}
		values[k] = n
	}
	if len(values) == 0 {
		return model.ImpactWeightSet{}, fmt.Errorf("%w: no weight keys in %q", ErrMalformedReply, content)
	}

	get := func(k string, def int) int {
		if n, ok := values[k]; ok {
			return n
		}
		return def
	}
	w := model.ImpactWeightSet{
		EMIRepayment:         get("emi_repayment", fallback.EMIRepayment),
		CCFullPayment:        get("cc_full_payment", fallback.CCFullPayment),
		LatePayment:          get("late_payment", fallback.LatePayment),
		InquiryPenalty:       get("inquiry_penalty", fallback.InquiryPenalty),
		NewAccountPenalty:    get("new_account_penalty", fallback.NewAccountPenalty),
		LargePurchasePenalty: get("large_purchase_penalty", fallback.LargePurchasePenalty),
	}
	return w.Normalize(fallback), nil
}

// toInt reads a numeric reply value. Values that do not fit in an int32 are
// rejected rather than wrapped.
func toInt(v any) (int, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(n, "+")), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(math.Round(f)), true
}

// cleanMarkdownWrapper strips the ```json fences models like to add.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
