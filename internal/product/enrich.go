package product

// MergeEnrichment returns a copy of products where every product whose
// enrichment key is present in annotations carries that annotation. Other
// products are copied unchanged. Neither input is modified.
func MergeEnrichment(products []Product, annotations map[string]string) []Product {
	merged := make([]Product, 0, len(products))
	for _, p := range products {
		out := p.Clone()
		if key := EnrichmentKey(p); key != "" {
			if text, ok := annotations[key]; ok {
				out.DeepResearch = text
			}
		}
		merged = append(merged, out)
	}
	return merged
}
