package research

import (
	"context"

	"github.com/Keyring-Network/prodscout/internal/product"
)

type KeywordGenerator interface {
	Generate(ctx context.Context, topic string) ([]string, error)
}

// ProductSource returns up to count products for one keyword. A
// *SourceError is fatal for the run; any other error only empties that
// keyword's contribution.
type ProductSource interface {
	Search(ctx context.Context, keyword string, count int) ([]product.Product, error)
}

// Observer receives progress notifications while a run executes.
// KeywordSearched may be called from several goroutines at once.
type Observer interface {
	KeywordsResolved(keywords product.KeywordSet)
	KeywordSearched(status KeywordStatus)
}

type Request struct {
	Topic              string
	ExistingEnrichment map[string]string
	AdjustedKeywords   product.KeywordSet
	SkipGeneration     bool
	Observer           Observer
}

type KeywordStatus struct {
	Keyword string `json:"keyword"`
	Weight  int    `json:"weight"`
	Count   int    `json:"count"`
	Failed  bool   `json:"failed"`
	Error   string `json:"error,omitempty"`
}

type Result struct {
	Keywords      []string           `json:"keywords"`
	Weights       product.KeywordSet `json:"weights"`
	Products      []product.Product  `json:"products"`
	Content       string             `json:"content"`
	KeywordStatus []KeywordStatus    `json:"keywordStatus"`
}
