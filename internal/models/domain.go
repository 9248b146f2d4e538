package models

// Fixed domains of the enumerated insight fields. The empty string is
// always allowed in addition to these values.
var (
	Sectors = []string{
		"Energy", "Environment", "Government", "Aerospace & defence",
		"Manufacturing", "Retail", "Technology", "Healthcare", "Financial services",
		"Agriculture", "Tourism", "Education", "Transportation", "Media", "Construction",
	}

	Regions = []string{
		"Northern America", "Central America", "Western Africa", "Western Asia",
		"World", "Eastern Europe", "Southern Asia", "South America", "Eastern Asia",
		"Central Asia", "Northern Africa", "Eastern Africa", "Southern Africa", "Oceania", "Europe",
	}

	PestleCategories = []string{
		"Political", "Economic", "Social", "Technological", "Environmental", "Legal", "Industries",
	}
)

// InDomain reports whether v is empty or one of domain.
func InDomain(domain []string, v string) bool {
	if v == "" {
		return true
	}
	for _, d := range domain {
		if d == v {
			return true
		}
	}
	return false
}
