package compare

import "github.com/sells-group/sportcar/internal/model"

// Derive returns the display attributes of v. The values are fixed
// placeholders until the catalog carries real specifications.
func Derive(_ model.Vehicle) model.Attributes {
	return model.Attributes{
		Category:    "Supercar",
		Fuel:        "Essence",
		Consumption: "10.5L/100km",
		Seats:       2,
		Safety:      5,
		Reliability: 4,
		Pros:        []string{"Performances exceptionnelles", "Design iconique", "Technologie avancée", "Prestige"},
		Cons:        []string{"Prix élevé", "Consommation importante", "Entretien coûteux"},
	}
}
