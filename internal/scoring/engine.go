package scoring

import (
	"context"
	"time"

	"LuminCredit/internal/calculator"
	"LuminCredit/internal/model"

	"github.com/sirupsen/logrus"
)

// WeightResolver supplies impact weights tuned to a provisional score.
type WeightResolver interface {
	Resolve(ctx context.Context, rec *model.UserFinancialRecord, provisional int) (model.ImpactWeightSet, error)
	Name() string
}

// staticResolver is implemented by resolvers that answer without an advisory
// call. Their weights are reported as WeightsFromDefault.
type staticResolver interface {
	Static() bool
}

// Engine runs the two-stage scoring pipeline:
//
//  1. provisional score with the default penalties,
//  2. weights resolved for that provisional score,
//  3. final score with the resolved weights,
//  4. 12-month trend and movement explanations with the same weights.
type Engine struct {
	Calculator     *calculator.ScoreCalculator
	Resolver       WeightResolver
	Policy         model.Policy
	ResolveTimeout time.Duration

	// EvaluationDate anchors the month labels. Zero means "now".
	EvaluationDate time.Time

	Log *logrus.Logger
}

// NewEngine creates an Engine with the default policy.
func NewEngine(calc *calculator.ScoreCalculator, resolver WeightResolver, log *logrus.Logger) *Engine {
	return &Engine{
		Calculator:     calc,
		Resolver:       resolver,
		Policy:         model.DefaultPolicy(),
		ResolveTimeout: 30 * time.Second,
		Log:            log,
	}
}

// Evaluate scores the record and reconstructs its history. It never fails:
// an unusable resolver degrades to the policy weights.
func (e *Engine) Evaluate(ctx context.Context, rec *model.UserFinancialRecord) *model.ScoreReport {
	provisional := e.ProvisionalScore(rec)
	weights, source := e.ResolveWeights(ctx, rec, provisional)
	score := e.FinalScore(rec, weights)

	history := Reconstruct(rec, score, weights, e.anchor())
	movements := Explain(rec, history)

	return &model.ScoreReport{
		Username:         rec.Username,
		Score:            score,
		ProvisionalScore: provisional,
		Weights:          weights,
		WeightsSource:    source,
		History:          history,
		ScoreHistory:     model.ScoreHistory{ScoreMovements: movements},
	}
}

// ProvisionalScore is stage one: the base score under the default penalties.
func (e *Engine) ProvisionalScore(rec *model.UserFinancialRecord) int {
	return e.Calculator.BaseScore(rec, nil)
}

// FinalScore is stage two: the base score under the resolved weights.
func (e *Engine) FinalScore(rec *model.UserFinancialRecord, weights model.ImpactWeightSet) int {
	return e.Calculator.BaseScore(rec, &weights)
}

// ResolveWeights asks the resolver for weights and falls back to the policy
// on any error.
func (e *Engine) ResolveWeights(ctx context.Context, rec *model.UserFinancialRecord, provisional int) (model.ImpactWeightSet, model.WeightsSource) {
	if e.Resolver == nil {
		return e.Policy.Weights, model.WeightsFromDefault
	}

	if e.ResolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.ResolveTimeout)
		defer cancel()
	}

	weights, err := e.Resolver.Resolve(ctx, rec, provisional)
	if err != nil {
		e.logger().WithFields(logrus.Fields{
			"resolver": e.Resolver.Name(),
			"username": rec.Username,
		}).WithError(err).Warn("weight resolution failed, using default weights")
		return e.Policy.Weights, model.WeightsFromDefault
	}
	source := model.WeightsFromAdvisor
	if s, ok := e.Resolver.(staticResolver); ok && s.Static() {
		source = model.WeightsFromDefault
	}
	return weights.Normalize(e.Policy.Weights), source
}

func (e *Engine) anchor() time.Time {
	if e.EvaluationDate.IsZero() {
		return time.Now()
	}
	return e.EvaluationDate
}

func (e *Engine) logger() *logrus.Logger {
	if e.Log == nil {
		return logrus.StandardLogger()
	}
	return e.Log
}
