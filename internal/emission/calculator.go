package emission

import "fmt"

// FactorResolver is the lookup the calculator depends on.
type FactorResolver interface {
	ResolveFactor(wasteType, facility string) (float64, error)
}

type Calculator struct {
	factors FactorResolver
}

func NewCalculator(factors FactorResolver) *Calculator {
	return &Calculator{factors: factors}
}

// ComputeEmission returns factor * amount. Amount is not validated here.
func (c *Calculator) ComputeEmission(wasteType, facility string, amount float64) (float64, error) {
	factor, err := c.factors.ResolveFactor(wasteType, facility)
	if err != nil {
		return 0, fmt.Errorf("resolve emission factor for %s at %s: %w", wasteType, facility, err)
	}
	return factor * amount, nil
}
