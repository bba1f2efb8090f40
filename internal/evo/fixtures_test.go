package evo

import (
	"fmt"

	"suitegen/internal/model"
)

func valid(v any) model.TestValue {
	return model.TestValue{Value: v, Category: model.CategoryValid}
}

func textPhoneParams() []model.Parameter {
	return []model.Parameter{
		{
			Name: "text",
			Type: "string",
			Domain: []model.TestValue{
				{Value: "Normal1", Category: model.CategoryValid},
				{Value: "BoundaryMin-1", Category: model.CategoryBoundaryInvalid, ExpectedInvalidMessage: "too short"},
				{Value: "BoundaryMin", Category: model.CategoryBoundaryValid},
				{Value: "BoundaryMax", Category: model.CategoryBoundaryValid},
				{Value: "BoundaryMax+1", Category: model.CategoryBoundaryInvalid, ExpectedInvalidMessage: "too long"},
				{Value: "Invalid1", Category: model.CategoryInvalid, ExpectedInvalidMessage: "invalid text"},
			},
		},
		{
			Name: "phone",
			Type: "phone",
			Domain: []model.TestValue{
				{Value: "+359888888888", Category: model.CategoryValid},
				{Value: "000000", Category: model.CategoryInvalid, ExpectedInvalidMessage: "invalid phone"},
			},
		},
	}
}

// uniformParams builds all-valid parameters with the given domain sizes.
func uniformParams(sizes ...int) []model.Parameter {
	params := make([]model.Parameter, len(sizes))
	for i, size := range sizes {
		domain := make([]model.TestValue, size)
		for v := range domain {
			domain[v] = valid(fmt.Sprintf("p%d-v%d", i, v))
		}
		params[i] = model.Parameter{Name: fmt.Sprintf("p%d", i), Domain: domain}
	}
	return params
}

// mixedParams adds boundary and invalid values to every domain.
func mixedParams(count int) []model.Parameter {
	params := make([]model.Parameter, count)
	for i := range params {
		params[i] = model.Parameter{
			Name: fmt.Sprintf("m%d", i),
			Domain: []model.TestValue{
				{Value: i*10 + 1, Category: model.CategoryValid},
				{Value: i*10 + 2, Category: model.CategoryBoundaryValid},
				{Value: i*10 + 3, Category: model.CategoryBoundaryInvalid},
				{Value: i*10 + 4, Category: model.CategoryInvalid},
			},
		}
	}
	return params
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Seed = 7
	return cfg
}
