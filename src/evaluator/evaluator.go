package evaluator

import (
	"math"
	"sort"

	"tradelab/src/indicator"
	"tradelab/src/model"
)

// equalEpsilon is the tolerance used by the EQUAL operator.
const equalEpsilon = 0.0001

// Evaluate runs a single strategy condition against the current row, using
// prev for crossover lookback. Every failure mode evaluates to false rather
// than an error: unknown indicator or operator, a missing/NaN value, a nil
// threshold, or a crossover on the first row (no previous row yet).
func Evaluate(row indicator.Row, prev *indicator.Row, cond model.StrategyCondition) bool {
	switch cond.Operator {
	case model.OperatorGreaterThan,
		model.OperatorLessThan,
		model.OperatorGreaterEqual,
		model.OperatorLessEqual,
		model.OperatorEqual:
		return evaluateComparison(row, cond)

	case model.OperatorCrossAbove, model.OperatorCrossBelow:
		return evaluateThresholdCross(row, prev, cond)

	case model.OperatorCrossAboveIndicator, model.OperatorCrossBelowIndicator:
		return evaluateIndicatorCross(row, prev, cond)
	}

	return false
}

func evaluateComparison(row indicator.Row, cond model.StrategyCondition) bool {
	current, ok := indicator.Resolve(row, cond.Indicator)
	if !ok || cond.Value == nil {
		return false
	}

	value := *cond.Value

	switch cond.Operator {
	case model.OperatorGreaterThan:
		return current > value
	case model.OperatorLessThan:
		return current < value
	case model.OperatorGreaterEqual:
		return current >= value
	case model.OperatorLessEqual:
		return current <= value
	case model.OperatorEqual:
		return math.Abs(current-value) < equalEpsilon
	}

	return false
}

func evaluateThresholdCross(row indicator.Row, prev *indicator.Row, cond model.StrategyCondition) bool {
	if prev == nil || cond.Value == nil {
		return false
	}

	current, ok := indicator.Resolve(row, cond.Indicator)
	if !ok {
		return false
	}
	previous, ok := indicator.Resolve(*prev, cond.Indicator)
	if !ok {
		return false
	}

	value := *cond.Value

	if cond.Operator == model.OperatorCrossAbove {
		return previous <= value && current > value
	}
	return previous >= value && current < value
}

// evaluateIndicatorCross compares two named indicators against each other:
// the condition's indicator is the fast leg, CompareIndicator the slow one.
// An unset pair keeps the historical MM9-over-MM21 behavior.
func evaluateIndicatorCross(row indicator.Row, prev *indicator.Row, cond model.StrategyCondition) bool {
	if prev == nil {
		return false
	}

	fast := cond.Indicator
	if fast == "" {
		fast = indicator.NameMM9
	}
	slow := cond.CompareIndicator
	if slow == "" {
		slow = indicator.NameMM21
	}

	fastCur, ok := indicator.Resolve(row, fast)
	if !ok {
		return false
	}
	slowCur, ok := indicator.Resolve(row, slow)
	if !ok {
		return false
	}
	fastPrev, ok := indicator.Resolve(*prev, fast)
	if !ok {
		return false
	}
	slowPrev, ok := indicator.Resolve(*prev, slow)
	if !ok {
		return false
	}

	if cond.Operator == model.OperatorCrossAboveIndicator {
		return fastPrev <= slowPrev && fastCur > slowCur
	}
	return fastPrev >= slowPrev && fastCur < slowCur
}

// EvaluateSet folds the strategy's conditions of the given type into one
// boolean. Conditions are taken in SortOrder (stable on ties), folded left to
// right with each condition's own AND/OR, no precedence and no
// short-circuiting. An empty set evaluates to false, so a strategy without
// EXIT rules can only exit at end of data.
func EvaluateSet(row indicator.Row, prev *indicator.Row, conditions []model.StrategyCondition, conditionType string) bool {
	var selected []model.StrategyCondition
	for _, cond := range conditions {
		if cond.ConditionType == conditionType {
			selected = append(selected, cond)
		}
	}

	if len(selected) == 0 {
		return false
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].SortOrder < selected[j].SortOrder
	})

	result := Evaluate(row, prev, selected[0])
	for _, cond := range selected[1:] {
		value := Evaluate(row, prev, cond)
		if cond.Logic == model.LogicOr {
			result = result || value
		} else {
			result = result && value
		}
	}

	return result
}
