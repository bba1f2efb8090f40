package pairwise

import "suitegen/internal/model"

// Pair is a cross-parameter value combination.
type Pair struct {
	FirstIndex  int
	SecondIndex int
	First       model.TestValue
	Second      model.TestValue
}

// Uncovered lists every value pair that no case holds at the matching positions.
func Uncovered(params []model.Parameter, cases []model.TestCase) []Pair {
	present := make(map[[2]int]map[[2]string]struct{})
	for _, tc := range cases {
		if len(tc.Values) != len(params) {
			continue
		}
		for i := 0; i < len(params); i++ {
			for j := i + 1; j < len(params); j++ {
				key := [2]int{i, j}
				if present[key] == nil {
					present[key] = make(map[[2]string]struct{})
				}
				present[key][[2]string{tc.Values[i].Key(), tc.Values[j].Key()}] = struct{}{}
			}
		}
	}

	var missing []Pair
	for i := 0; i < len(params); i++ {
		for j := i + 1; j < len(params); j++ {
			seen := present[[2]int{i, j}]
			for _, first := range params[i].Domain {
				for _, second := range params[j].Domain {
					if _, ok := seen[[2]string{first.Key(), second.Key()}]; ok {
						continue
					}
					missing = append(missing, Pair{FirstIndex: i, SecondIndex: j, First: first, Second: second})
				}
			}
		}
	}
	return missing
}

// PairCount is the number of cross-parameter value pairs a covering array must hold.
func PairCount(params []model.Parameter) int {
	total := 0
	for i := 0; i < len(params); i++ {
		for j := i + 1; j < len(params); j++ {
			total += len(params[i].Domain) * len(params[j].Domain)
		}
	}
	return total
}
