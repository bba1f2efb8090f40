package evo

import (
	"fmt"

	"suitegen/internal/model"
)

const (
	invalidComboPenalty = -50.0
	noveltyBonus        = 25.0
	localNoveltyStep    = 0.25
)

// BaseScore is the per-value contribution of a category.
func BaseScore(c model.Category) float64 {
	switch c {
	case model.CategoryBoundaryValid:
		return 20
	case model.CategoryValid:
		return 2
	case model.CategoryBoundaryInvalid:
		return -1
	case model.CategoryInvalid:
		return -2
	default:
		panic(fmt.Sprintf("unhandled test value category %v", c))
	}
}

// NoveltyLedger records which values have been seen at each position.
type NoveltyLedger struct {
	seen []map[string]struct{}
}

func NewNoveltyLedger() *NoveltyLedger {
	return &NoveltyLedger{}
}

func (l *NoveltyLedger) Reset() {
	l.seen = nil
}

// Record marks value as seen at position and reports whether it was new.
func (l *NoveltyLedger) Record(position int, value model.TestValue) bool {
	for len(l.seen) <= position {
		l.seen = append(l.seen, make(map[string]struct{}))
	}
	key := value.Key()
	if _, ok := l.seen[position][key]; ok {
		return false
	}
	l.seen[position][key] = struct{}{}
	return true
}

// Evaluator scores test cases. Global novelty accumulates in the evaluator's
// ledger across Evaluate calls and is only reset by EvaluatePopulation, so
// scores inside one pass depend on call order. Use one evaluator per run.
type Evaluator struct {
	allowMultipleInvalid bool
	ledger               *NoveltyLedger
}

func NewEvaluator(allowMultipleInvalid bool) *Evaluator {
	return &Evaluator{
		allowMultipleInvalid: allowMultipleInvalid,
		ledger:               NewNoveltyLedger(),
	}
}

func (e *Evaluator) Evaluate(tc model.TestCase, comparison []model.TestCase) float64 {
	return Score(tc, comparison, e.ledger, e.allowMultipleInvalid)
}

// EvaluatePopulation resets global novelty and rescores every member in
// population order.
func (e *Evaluator) EvaluatePopulation(population *Population) {
	e.ledger.Reset()
	snapshot := population.Cases()
	for i, tc := range snapshot {
		population.SetScore(i, e.Evaluate(tc, snapshot))
	}
}

// Score computes the fitness of tc. The ledger is updated with every value
// it has not recorded before.
func Score(tc model.TestCase, comparison []model.TestCase, ledger *NoveltyLedger, allowMultipleInvalid bool) float64 {
	invalid := tc.InvalidCount()
	if !allowMultipleInvalid && invalid > 1 {
		return invalidComboPenalty * float64(invalid)
	}

	score := 0.0
	for _, value := range tc.Values {
		score += BaseScore(value.Category)
	}
	for position, value := range tc.Values {
		if ledger.Record(position, value) {
			score += noveltyBonus
		}
	}
	if firstTime := firstTimeValueCount(tc, comparison); firstTime > 0 {
		score += noveltyBonus * (1 + localNoveltyStep*float64(firstTime))
	}
	return score
}

// firstTimeValueCount counts positions where no case ahead of tc in
// comparison holds the same value. Cases outside comparison are checked
// against all of it.
func firstTimeValueCount(tc model.TestCase, comparison []model.TestCase) int {
	count := 0
	for position, value := range tc.Values {
		first := true
		for _, other := range comparison {
			if other.Equal(tc) {
				break
			}
			if position < len(other.Values) && other.Values[position].Equal(value) {
				first = false
				break
			}
		}
		if first {
			count++
		}
	}
	return count
}
