package model

// Score bounds shared by every score output.
const (
	MinScore = 300
	MaxScore = 900
)

// ClampScore bounds a score to [MinScore, MaxScore].
func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// ScoreTrendPoint is one month of the reconstructed score history.
type ScoreTrendPoint struct {
	Month string `json:"month"`
	Score int    `json:"score"`
}

// MovementRecord explains a single month-over-month score change.
type MovementRecord struct {
	Date   string `json:"date"`   // "In Mar"
	Change string `json:"change"` // "+5", "-30"
	Reason string `json:"reason"`
}

// ScoreHistory wraps the movement list the way clients expect it.
type ScoreHistory struct {
	ScoreMovements []MovementRecord `json:"score_movements"`
}

// ScoreReport is the output of one scoring run.
type ScoreReport struct {
	Username         string            `json:"username"`
	Score            int               `json:"score"`
	ProvisionalScore int               `json:"provisional_score"`
	Weights          ImpactWeightSet   `json:"weights"`
	WeightsSource    WeightsSource     `json:"weights_source"`
	History          []ScoreTrendPoint `json:"history"`
	ScoreHistory     ScoreHistory      `json:"score_history"`
}
