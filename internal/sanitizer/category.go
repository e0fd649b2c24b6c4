package sanitizer

import "strings"

// Categories is the closed set spec.md §4.6 normalizes every extraction's
// category into.
const (
	CategoryFood                 = "Food"
	CategoryTransport            = "Transport"
	CategoryOfficeSupplies       = "Office Supplies"
	CategoryUtilities            = "Utilities"
	CategoryProfessionalServices = "Professional Services"
	CategoryMarketing            = "Marketing"
	CategoryTechnology           = "Technology"
	CategoryTravel               = "Travel"
	CategoryEntertainment        = "Entertainment"
	CategoryMiscellaneous        = "Miscellaneous"
)

// categorySynonyms maps normalized provider-output spellings (the providers'
// own extraction prompt asks for a narrower enum than the closed set, and
// models don't always stick to it) onto the closed set above.
var categorySynonyms = map[string]string{
	"food":            CategoryFood,
	"meals":           CategoryFood,
	"meal":            CategoryFood,
	"dining":          CategoryFood,
	"restaurant":      CategoryFood,
	"groceries":       CategoryFood,
	"transport":       CategoryTransport,
	"transportation":  CategoryTransport,
	"taxi":            CategoryTransport,
	"fuel":            CategoryTransport,
	"gas":             CategoryTransport,
	"parking":         CategoryTransport,
	"office supplies": CategoryOfficeSupplies,
	"stationery":      CategoryOfficeSupplies,
	"supplies":        CategoryOfficeSupplies,
	"utilities":       CategoryUtilities,
	"utility":         CategoryUtilities,
	"electricity":     CategoryUtilities,
	"water":           CategoryUtilities,
	"professional services": CategoryProfessionalServices,
	"legal":                 CategoryProfessionalServices,
	"accounting":            CategoryProfessionalServices,
	"consulting":            CategoryProfessionalServices,
	"marketing":             CategoryMarketing,
	"advertising":           CategoryMarketing,
	"ads":                   CategoryMarketing,
	"technology":            CategoryTechnology,
	"software":              CategoryTechnology,
	"hardware":              CategoryTechnology,
	"it":                    CategoryTechnology,
	"saas":                  CategoryTechnology,
	"travel":                CategoryTravel,
	"flight":                CategoryTravel,
	"hotel":                 CategoryTravel,
	"airfare":               CategoryTravel,
	"entertainment":         CategoryEntertainment,
	"leisure":               CategoryEntertainment,
	"recreation":            CategoryEntertainment,
	"other":                 CategoryMiscellaneous,
	"misc":                  CategoryMiscellaneous,
	"miscellaneous":         CategoryMiscellaneous,
	"unknown":               CategoryMiscellaneous,
}

// NormalizeCategory maps raw to one of the Category* constants, falling back
// to CategoryMiscellaneous for anything unrecognized (including an empty
// string).
func NormalizeCategory(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "_", " ")
	key = strings.ReplaceAll(key, "-", " ")
	if mapped, ok := categorySynonyms[key]; ok {
		return mapped
	}
	return CategoryMiscellaneous
}
