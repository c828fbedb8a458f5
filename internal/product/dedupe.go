package product

// Batch is the result list of one keyword query.
type Batch struct {
	Keyword  string
	Products []Product
}

type DedupResult struct {
	Products []Product
	// Sources counts the distinct keyword batches each retained product
	// appeared in, keyed by identity key.
	Sources map[string]int
	Removed int
}

// Deduplicate keeps one product per identity key. When two records share a
// key the later one replaces the earlier one in place, so output order is the
// order in which each key was first seen.
func Deduplicate(items []Product) []Product {
	return DeduplicateBatches([]Batch{{Products: items}}).Products
}

func DeduplicateBatches(batches []Batch) DedupResult {
	seen := make(map[string]int)
	sources := make(map[string]int)
	var deduped []Product
	removed := 0

	for _, batch := range batches {
		inBatch := make(map[string]struct{})
		for _, p := range batch.Products {
			key := IdentityKey(p)
			if _, ok := inBatch[key]; !ok {
				inBatch[key] = struct{}{}
				sources[key]++
			}
			if idx, ok := seen[key]; ok {
				deduped[idx] = p.Clone()
				removed++
				continue
			}
			seen[key] = len(deduped)
			deduped = append(deduped, p.Clone())
		}
	}
	return DedupResult{Products: deduped, Sources: sources, Removed: removed}
}
