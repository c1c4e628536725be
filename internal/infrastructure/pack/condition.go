package pack

import (
	"errors"
	"strings"

	"github.com/Knetic/govaluate"

	"github.com/quiz-hub/quiz-hub/internal/domain/rules"
)

// EvaluateCondition evaluates a round or question condition against the
// live game. Empty condition returns true. Supports "true"/"false" literals.
func EvaluateCondition(condition string, gc rules.Context) (bool, error) {
	cond := strings.TrimSpace(condition)
	if cond == "" {
		return true, nil
	}
	switch strings.ToLower(cond) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}

	expr, err := govaluate.NewEvaluableExpression(cond)
	if err != nil {
		return false, err
	}
	result, err := expr.Evaluate(buildContextParams(gc))
	if err != nil {
		return false, err
	}
	switch v := result.(type) {
	case bool:
		return v, nil
	default:
		return false, errors.New("condition did not evaluate to boolean")
	}
}

func buildContextParams(gc rules.Context) map[string]interface{} {
	params := map[string]interface{}{
		"round":      float64(gc.Round),
		"players":    float64(gc.Players),
		"maxScore":   0.0,
		"minScore":   0.0,
		"totalScore": 0.0,
		"positive":   0.0,
	}
	for i, s := range gc.Scores {
		v := float64(s)
		if i == 0 || v > params["maxScore"].(float64) {
			params["maxScore"] = v
		}
		if i == 0 || v < params["minScore"].(float64) {
			params["minScore"] = v
		}
		params["totalScore"] = params["totalScore"].(float64) + v
		if s > 0 {
			params["positive"] = params["positive"].(float64) + 1
		}
	}
	return params
}
