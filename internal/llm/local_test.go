package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerate_LocalEchoesLastUserMessage(t *testing.T) {
	provider := LocalProvider{}

	result, err := provider.Generate(context.Background(), []Message{
		{Role: "system", Content: "You are helpful."},
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "ignored"},
		{Role: "user", Content: "  crm  "},
	})
	require.NoError(t, err)
	require.Equal(t, "crm", result)
}

func TestGenerate_LocalEmptyMessages(t *testing.T) {
	provider := LocalProvider{}

	result, err := provider.Generate(context.Background(), []Message{})
	require.EqualError(t, err, "local provider needs a user message")
	require.Empty(t, result)
}

func TestGenerate_LocalWithCancelledContext(t *testing.T) {
	provider := LocalProvider{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := provider.Generate(ctx, []Message{{Role: "user", Content: "Hello"}})
	require.ErrorIs(t, err, context.Canceled)
}
