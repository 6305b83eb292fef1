// Package cohere adapts the Cohere chat API as a text completion
// provider for chapter analysis.
package cohere

import (
	"context"
	"fmt"

	cohereapi "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"

	"github.com/clipforge/clipd/internal/ports"
)

const defaultModel = "command-r"

type Adapter struct {
	client *cohereclient.Client
	model  string
}

func New(apiKey, model string) *Adapter {
	if model == "" {
		model = defaultModel
	}
	return &Adapter{
		client: cohereclient.NewClient(cohereclient.WithToken(apiKey)),
		model:  model,
	}
}

func (a *Adapter) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.Chat(ctx, &cohereapi.ChatRequest{
		Message: prompt,
		Model:   &a.model,
	})
	if err != nil {
		return "", fmt.Errorf("cohere chat: %w", err)
	}
	return resp.Text, nil
}

func (a *Adapter) Name() string { return "cohere/" + a.model }

var _ ports.TextCompleter = (*Adapter)(nil)
