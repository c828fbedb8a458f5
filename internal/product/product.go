package product

import (
	"strings"
	"time"
)

const DefaultWeight = 10

type Product struct {
	ID           string    `json:"id,omitempty"`
	Name         string    `json:"name"`
	Tagline      string    `json:"tagline"`
	Description  string    `json:"description"`
	URL          string    `json:"url"`
	Website      string    `json:"website,omitempty"`
	VotesCount   int       `json:"votesCount"`
	CreatedAt    time.Time `json:"createdAt"`
	Topics       []string  `json:"topics"`
	DeepResearch string    `json:"deepResearch,omitempty"`
}

// Keyword is one search term and the number of results to request for it.
type Keyword struct {
	Text   string `json:"keyword"`
	Weight int    `json:"weight"`
}

// IdentityKey is the deduplication key. Names are compared case-folded with
// whitespace collapsed; the directory id and listing url are fallbacks for
// records without a usable name.
func IdentityKey(p Product) string {
	if name := normalizeName(p.Name); name != "" {
		return "name:" + name
	}
	if id := strings.TrimSpace(p.ID); id != "" {
		return "id:" + id
	}
	return "url:" + strings.TrimSpace(p.URL)
}

// EnrichmentKey is the key deep-research annotations are stored under.
func EnrichmentKey(p Product) string {
	if website := strings.TrimSpace(p.Website); website != "" {
		return website
	}
	return strings.TrimSpace(p.URL)
}

func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Clone returns a copy that shares no slices with p.
func (p Product) Clone() Product {
	if p.Topics != nil {
		p.Topics = append([]string(nil), p.Topics...)
	}
	return p
}
