// Package keywords turns a free-form product topic into directory search tags
// with a single language-model call.
package keywords

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/Keyring-Network/prodscout/internal/llm"
	"github.com/Keyring-Network/prodscout/internal/research"
)

const DefaultCount = 10

const systemPrompt = `You are a product analyst. The user sends a product topic; answer with %d search tags for the Product Hunt directory.
Rules:
1. Translate the topic into English before choosing tags.
2. Understand what kind of product the topic describes and include tags for the same category (for example "smart lead acquisition" should include "lead" and "lead-generation").
3. Prefer the single most relevant lowercase English word per tag. Use hyphens instead of spaces.
4. Return only the tags separated by commas, for example: ai, productivity, lead, design-tools, ai-tools`

type Generator struct {
	provider llm.Provider
	count    int
	logger   *zap.Logger
}

func NewGenerator(provider llm.Provider, count int, logger *zap.Logger) *Generator {
	if count < 1 {
		count = DefaultCount
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{provider: provider, count: count, logger: logger}
}

// Generate makes exactly one model call. Upstream failures and unusable output
// are reported as *research.GenerationError.
func (g *Generator) Generate(ctx context.Context, topic string) ([]string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, &research.GenerationError{Topic: topic, Reason: "topic is empty"}
	}

	raw, err := g.provider.Generate(ctx, Messages(topic, g.count))
	if err != nil {
		g.logger.Warn("keyword generation call failed", zap.String("topic", topic), zap.Error(err))
		return nil, &research.GenerationError{Topic: topic, Err: err}
	}

	keywords := Parse(raw, g.count)
	if len(keywords) == 0 {
		g.logger.Warn("keyword generation returned no usable tags",
			zap.String("topic", topic),
			zap.String("raw", truncate(raw, 200)),
		)
		return nil, &research.GenerationError{Topic: topic, Reason: "model output contained no keywords"}
	}
	g.logger.Debug("keywords generated", zap.String("topic", topic), zap.Strings("keywords", keywords))
	return keywords, nil
}

// Messages builds the prompt. The topic is the only user message.
func Messages(topic string, count int) []llm.Message {
	return []llm.Message{
		{Role: "system", Content: fmt.Sprintf(systemPrompt, count)},
		{Role: "user", Content: topic},
	}
}

// Parse splits model output on commas and newlines. Tags are lowercased, list
// markers and quotes are stripped, and blanks and repeats are dropped. At most
// limit tags are returned when limit is positive.
func Parse(raw string, limit int) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r' || r == '，' || r == '、'
	})
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		tag := cleanTag(field)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]+|\d+[.)])\s*`)

func cleanTag(field string) string {
	tag := listMarker.ReplaceAllString(strings.TrimSpace(field), "")
	tag = strings.Trim(tag, "\"'`“”‘’ \t.")
	tag = strings.ToLower(strings.Join(strings.Fields(tag), " "))
	return tag
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}
