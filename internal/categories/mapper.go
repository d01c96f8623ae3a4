// Package categories maps free-text career-path form values onto the fixed
// set of database categories used for filtering.
package categories

import "strings"

// AllCategories is the sentinel returned for unmapped input. Callers treat
// it as "no category filter" so a bad or legacy form value degrades to a
// wider search instead of zero results.
const AllCategories = "all-categories"

// TableVersion identifies the lookup table revision, recorded alongside
// provenance when category mapping influenced a match.
const TableVersion = "v2"

// Category enum values as stored on job records.
const (
	CategoryTech       = "tech"
	CategoryData       = "data"
	CategoryProduct    = "product"
	CategoryDesign     = "design"
	CategoryMarketing  = "marketing"
	CategorySales      = "sales"
	CategoryFinance    = "finance"
	CategoryConsulting = "consulting"
	CategoryOperations = "operations"
	CategoryHR         = "people"
)

// formTable maps normalized form values to database categories. A form value
// may fan out to several categories (e.g. "software engineering" jobs are
// tagged either tech or data depending on the source board).
var formTable = map[string][]string{
	"tech":                 {CategoryTech},
	"software engineering": {CategoryTech},
	"engineering":          {CategoryTech},
	"it":                   {CategoryTech},
	"data":                 {CategoryData, CategoryTech},
	"data science":         {CategoryData, CategoryTech},
	"analytics":            {CategoryData},
	"product":              {CategoryProduct},
	"product management":   {CategoryProduct},
	"design":               {CategoryDesign},
	"ux":                   {CategoryDesign},
	"marketing":            {CategoryMarketing},
	"growth":               {CategoryMarketing, CategorySales},
	"sales":                {CategorySales},
	"business development": {CategorySales},
	"finance":              {CategoryFinance},
	"accounting":           {CategoryFinance},
	"banking":              {CategoryFinance},
	"consulting":           {CategoryConsulting},
	"strategy":             {CategoryConsulting},
	"operations":           {CategoryOperations},
	"supply chain":         {CategoryOperations},
	"hr":                   {CategoryHR},
	"people":               {CategoryHR},
	"recruiting":           {CategoryHR},
}

// MapFormValue translates a single career-path form value into the set of
// database categories it covers. Unknown input maps to the AllCategories
// sentinel rather than erroring. Pure and total.
func MapFormValue(value string) []string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	// Form slugs arrive hyphenated ("software-engineering").
	normalized = strings.NewReplacer("-", " ", "_", " ").Replace(normalized)
	if cats, ok := formTable[normalized]; ok {
		out := make([]string, len(cats))
		copy(out, cats)
		return out
	}
	return []string{AllCategories}
}

// MapCareerPath translates a user's full career-path selection (1-2 values)
// into a deduplicated category set. If any value is unmappable the sentinel
// is included, which downstream filters interpret as "match everything".
func MapCareerPath(values []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range values {
		for _, cat := range MapFormValue(v) {
			if !seen[cat] {
				seen[cat] = true
				out = append(out, cat)
			}
		}
	}
	if len(out) == 0 {
		return []string{AllCategories}
	}
	return out
}

// IsWildcard reports whether a category set disables category filtering.
func IsWildcard(categories []string) bool {
	for _, c := range categories {
		if c == AllCategories {
			return true
		}
	}
	return false
}
