// Package images provides the image-generation capability used for covers
// and illustrations: {prompt, size, count} in, URLs out.
package images

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Request describes one image-generation call.
type Request struct {
	Prompt string
	Size   string // e.g. "1024x1024"; empty uses the provider default
	Count  int    // number of images; zero means one
}

// Provider generates images from prompts. Implementations are external
// collaborators; the pipeline only depends on this interface.
type Provider interface {
	Generate(ctx context.Context, req Request) ([]string, error)
}

// OpenAIProvider implements Provider with the OpenAI images API.
type OpenAIProvider struct {
	client openai.Client
	model  openai.ImageModel
}

// NewOpenAIProvider creates a provider. A missing API key is a fatal
// configuration error surfaced here, before any run starts.
func NewOpenAIProvider(apiKey string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required for image generation")
	}
	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  openai.ImageModelDallE3,
	}, nil
}

// Generate requests req.Count images and returns their URLs.
func (p *OpenAIProvider) Generate(ctx context.Context, req Request) ([]string, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("image prompt is empty")
	}
	count := req.Count
	if count <= 0 {
		count = 1
	}

	params := openai.ImageGenerateParams{
		Prompt: req.Prompt,
		Model:  p.model,
		N:      openai.Int(int64(count)),
	}
	if req.Size != "" {
		params.Size = openai.ImageGenerateParamsSize(req.Size)
	}

	resp, err := p.client.Images.Generate(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to generate images: %w", err)
	}

	urls := make([]string, 0, len(resp.Data))
	for _, img := range resp.Data {
		if img.URL != "" {
			urls = append(urls, img.URL)
		}
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("image provider returned no URLs")
	}
	return urls, nil
}
