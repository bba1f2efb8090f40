// Package pairwise builds deterministic 2-way covering arrays from parameter domains.
package pairwise

import (
	"errors"
	"fmt"
	"math"

	"suitegen/internal/model"
)

var ErrInvalidArgument = errors.New("invalid argument")

const wildcard = -1

// Generate returns a deduplicated set of cases in which every pair of values
// from two distinct parameters appears at least once. The result depends only
// on the parameter order and domain order.
func Generate(params []model.Parameter) ([]model.TestCase, error) {
	if err := validate(params); err != nil {
		return nil, err
	}
	sizes := make([]int, len(params))
	for i, param := range params {
		sizes[i] = len(param.Domain)
	}
	return materialize(params, buildRows(sizes)), nil
}

func validate(params []model.Parameter) error {
	if len(params) < 2 {
		return fmt.Errorf("%w: Pairwise testing requires at least two parameters.", ErrInvalidArgument)
	}
	for i, param := range params {
		if len(param.Domain) == 0 {
			return fmt.Errorf("%w: parameter %d (%s) has an empty domain", ErrInvalidArgument, i, param.Name)
		}
	}
	return nil
}

// coverage tracks, for the parameter currently being added, which
// (earlier position, earlier value, new value) triples are covered.
type coverage struct {
	newSize   int
	covered   [][]bool
	remaining int
}

func newCoverage(sizes []int, k int) *coverage {
	c := &coverage{newSize: sizes[k], covered: make([][]bool, k)}
	for j := 0; j < k; j++ {
		c.covered[j] = make([]bool, sizes[j]*sizes[k])
		c.remaining += sizes[j] * sizes[k]
	}
	return c
}

func (c *coverage) isCovered(j, vj, vk int) bool {
	return c.covered[j][vj*c.newSize+vk]
}

func (c *coverage) mark(j, vj, vk int) {
	idx := vj*c.newSize + vk
	if !c.covered[j][idx] {
		c.covered[j][idx] = true
		c.remaining--
	}
}

func (c *coverage) markRow(row []int, k int) {
	if row[k] == wildcard {
		return
	}
	for j := 0; j < k; j++ {
		if row[j] != wildcard {
			c.mark(j, row[j], row[k])
		}
	}
}

func (c *coverage) gain(row []int, k, vk int) int {
	gain := 0
	for j := 0; j < k; j++ {
		if row[j] != wildcard && !c.isCovered(j, row[j], vk) {
			gain++
		}
	}
	return gain
}

// buildRows grows the array one parameter at a time: every existing row is
// extended first (horizontal growth) and new rows are only appended for pairs
// that no existing row can absorb (vertical growth).
func buildRows(sizes []int) [][]int {
	n := len(sizes)
	rows := make([][]int, 0, sizes[0]*sizes[1])
	for a := 0; a < sizes[0]; a++ {
		for b := 0; b < sizes[1]; b++ {
			row := newRow(n)
			row[0], row[1] = a, b
			rows = append(rows, row)
		}
	}

	for k := 2; k < n; k++ {
		cov := newCoverage(sizes, k)

		for _, row := range rows {
			best, bestGain := wildcard, 0
			for vk := 0; vk < sizes[k]; vk++ {
				if gain := cov.gain(row, k, vk); gain > bestGain {
					best, bestGain = vk, gain
				}
			}
			row[k] = best
			cov.markRow(row, k)
		}

		for j := 0; j < k && cov.remaining > 0; j++ {
			for vj := 0; vj < sizes[j]; vj++ {
				for vk := 0; vk < sizes[k]; vk++ {
					if cov.isCovered(j, vj, vk) {
						continue
					}
					row := findSlot(rows, j, vj, k, vk)
					if row == nil {
						row = newRow(n)
						rows = append(rows, row)
					}
					row[j], row[k] = vj, vk
					cov.markRow(row, k)
				}
			}
		}
	}

	for _, row := range rows {
		for i := range row {
			if row[i] == wildcard {
				row[i] = 0
			}
		}
	}
	return rows
}

func findSlot(rows [][]int, j, vj, k, vk int) []int {
	for _, row := range rows {
		if (row[j] == vj || row[j] == wildcard) && (row[k] == vk || row[k] == wildcard) {
			return row
		}
	}
	return nil
}

func newRow(n int) []int {
	row := make([]int, n)
	for i := range row {
		row[i] = wildcard
	}
	return row
}

func materialize(params []model.Parameter, rows [][]int) []model.TestCase {
	out := make([]model.TestCase, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		values := make([]model.TestValue, len(row))
		for i, idx := range row {
			values[i] = params[i].Domain[idx]
		}
		tc := model.TestCase{Values: values}
		fingerprint := tc.Fingerprint()
		if _, dup := seen[fingerprint]; dup {
			continue
		}
		seen[fingerprint] = struct{}{}
		out = append(out, tc)
	}
	return out
}

// CartesianSize returns the full product of domain sizes, saturating at math.MaxInt.
func CartesianSize(params []model.Parameter) int {
	if len(params) == 0 {
		return 0
	}
	total := 1
	for _, param := range params {
		size := len(param.Domain)
		if size == 0 {
			return 0
		}
		if total > math.MaxInt/size {
			return math.MaxInt
		}
		total *= size
	}
	return total
}
