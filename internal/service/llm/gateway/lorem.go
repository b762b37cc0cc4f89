package gateway

import (
	"context"
	"strings"

	llmprovider "github.com/haowjy/meridian-llm-go"
	"github.com/haowjy/meridian-llm-go/providers/lorem"

	"automatonbot/internal/domain"
)

// DefaultLoremModel is used when the configured model is not a lorem model
const DefaultLoremModel = "lorem-fast"

// LoremGateway answers every prompt with generated filler text.
// Used for local development without an API key.
type LoremGateway struct {
	provider llmprovider.Provider
	model    string
}

// NewLoremGateway creates a lorem gateway. Non-lorem model names fall back to DefaultLoremModel.
func NewLoremGateway(model string) *LoremGateway {
	provider := lorem.NewProvider()
	if !provider.SupportsModel(model) {
		model = DefaultLoremModel
	}
	return &LoremGateway{
		provider: provider,
		model:    model,
	}
}

// Name returns the provider name.
func (g *LoremGateway) Name() string {
	return "lorem"
}

// Send generates a reply to prompt
func (g *LoremGateway) Send(ctx context.Context, prompt string) (string, error) {
	text := prompt
	req := &llmprovider.GenerateRequest{
		Messages: []llmprovider.Message{
			{
				Role: "user",
				Blocks: []*llmprovider.Block{
					{BlockType: "text", Sequence: 0, TextContent: &text},
				},
			},
		},
		Model:  g.model,
		Params: &llmprovider.RequestParams{},
	}

	resp, err := g.provider.GenerateResponse(ctx, req)
	if err != nil {
		return "", &domain.UpstreamError{Message: err.Error(), Err: err}
	}

	var b strings.Builder
	for _, block := range resp.Blocks {
		if block == nil || block.TextContent == nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(*block.TextContent)
	}
	return b.String(), nil
}
