package evo

import "suitegen/internal/model"

// Population is an insertion-ordered set of test cases keyed by value
// sequence. Iteration order is stable, which keeps seeded runs reproducible.
type Population struct {
	cases []model.TestCase
	index map[string]int
}

// NewPopulation builds a population, dropping later duplicates.
func NewPopulation(cases []model.TestCase) *Population {
	p := &Population{
		cases: make([]model.TestCase, 0, len(cases)),
		index: make(map[string]int, len(cases)),
	}
	for _, tc := range cases {
		p.Add(tc)
	}
	return p
}

func (p *Population) Len() int {
	return len(p.cases)
}

func (p *Population) At(i int) model.TestCase {
	return p.cases[i]
}

// Cases returns a snapshot of the members in population order. The value
// slices are shared with the population and must not be modified.
func (p *Population) Cases() []model.TestCase {
	out := make([]model.TestCase, len(p.cases))
	copy(out, p.cases)
	return out
}

func (p *Population) Contains(tc model.TestCase) bool {
	_, ok := p.index[tc.Fingerprint()]
	return ok
}

func (p *Population) IndexOf(fingerprint string) (int, bool) {
	i, ok := p.index[fingerprint]
	return i, ok
}

// Add appends tc unless an equal case is already present.
func (p *Population) Add(tc model.TestCase) bool {
	fingerprint := tc.Fingerprint()
	if _, exists := p.index[fingerprint]; exists {
		return false
	}
	p.index[fingerprint] = len(p.cases)
	p.cases = append(p.cases, tc)
	return true
}

// Replace swaps the member at position i for tc, keeping its slot. It
// refuses replacements that would introduce a duplicate.
func (p *Population) Replace(i int, tc model.TestCase) bool {
	if i < 0 || i >= len(p.cases) {
		return false
	}
	fingerprint := tc.Fingerprint()
	if existing, ok := p.index[fingerprint]; ok {
		return existing == i
	}
	delete(p.index, p.cases[i].Fingerprint())
	p.index[fingerprint] = i
	p.cases[i] = tc
	return true
}

func (p *Population) SetScore(i int, score float64) {
	p.cases[i].Score = score
}
