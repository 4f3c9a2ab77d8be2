package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"

	"profit-matrix/internal/models"
)

const (
	demoMinQuantity = 100
	demoMaxQuantity = 3000
)

// DemoCategories are the product lines of the synthetic dataset.
var DemoCategories = []string{
	"ACCESORIOS DE VIAJE",
	"ROPA DEPORTIVA TÉCNICA",
	"EQUIPAMIENTO OUTDOOR",
}

// Demo generates n synthetic items. The same seed always yields the same
// dataset.
func Demo(seed uint64, n int) []models.Item {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	items := make([]models.Item, n)
	for i := range items {
		baseMargin := uniform(r, 0.10, 0.40)
		quantity := demoMinQuantity + r.IntN(demoMaxQuantity-demoMinQuantity+1)
		unitPrice := cents(uniform(r, 20, 150))
		sales := cents(float64(quantity) * unitPrice * uniform(r, 0.95, 1.05))

		items[i] = models.Item{
			ID:       fmt.Sprintf("%d%c", 100+r.IntN(900), "ABCD"[r.IntN(4)]),
			Category: DemoCategories[r.IntN(len(DemoCategories))],
			Quantity: float64(quantity),
			Sales:    sales,
			Cost:     cents(sales * (1 - baseMargin)),
		}
	}
	return items
}

func uniform(r *rand.Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

func cents(v float64) float64 {
	return math.Round(v*100) / 100
}
