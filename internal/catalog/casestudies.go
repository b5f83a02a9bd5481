package catalog

import "storefront/internal/models"

// FilterCaseStudies returns the published studies whose product matches product.
// An empty product returns every published study. Order is preserved.
func FilterCaseStudies(table *AliasTable, studies []*models.CaseStudy, product string) []*models.CaseStudy {
	out := make([]*models.CaseStudy, 0, len(studies))
	for _, cs := range studies {
		if !cs.Published {
			continue
		}
		if normalize(product) == "" || table.Match(product, cs.Product) {
			out = append(out, cs)
		}
	}
	return out
}
