package llm

import (
	"context"
	"errors"
	"strings"
)

// LocalProvider answers offline with the text of the last user message. Keyword
// generation then degrades to searching the topic itself.
type LocalProvider struct{}

func (LocalProvider) Generate(ctx context.Context, messages []Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != "user" {
			continue
		}
		if content := strings.TrimSpace(messages[i].Content); content != "" {
			return content, nil
		}
	}
	return "", errors.New("local provider needs a user message")
}
