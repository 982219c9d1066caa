package catalog

import "github.com/purriosity/purriosity-server/internal/domain"

// FilterByCategory returns the products whose filter labels (categories,
// or tags when a product has none) contain category. The "Alle" bucket and
// the empty string match everything. Comparison goes through the synonym
// table and ignores case.
func (m *Mapper) FilterByCategory(products []domain.Product, category string) []domain.Product {
	syn := m.synonyms.Load()
	want := foldKey(syn.Canonical(category))
	if want == "" || want == foldKey(domain.AllCategory) {
		return products
	}

	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		for _, label := range p.FilterLabels() {
			if foldKey(syn.Canonical(label)) == want {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

