package research

import (
	"context"
	"fmt"
)

// Perplexity defaults.
const (
	DefaultPerplexityURL = "https://api.perplexity.ai"
	PerplexityModel      = "llama-3.1-sonar-large-128k-online"
)

const researchSystemPrompt = "You are a tech research expert. Provide comprehensive, up-to-date information about technology products. Focus on specifications, pricing, pros/cons, and comparisons. Always include current market information and recent developments."

const researchUserPrompt = `Research the %s for a comprehensive %s. I need:
1. Current specifications and key features
2. Latest pricing and availability
3. Main advantages and disadvantages
4. How it compares to key competitors
5. Recent news or updates about this product
6. Current market reception and reviews

Provide factual, detailed information that would be useful for writing a professional tech review.`

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage is the token accounting Perplexity returns.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Answer is the first choice of a chat completion.
type Answer struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	TopP        float64   `json:"top_p"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// PerplexityClient calls the Perplexity chat completions endpoint.
type PerplexityClient struct {
	apiKey string
	model  string
	cfg    clientConfig
}

// NewPerplexityClient creates a Perplexity client using PerplexityModel.
func NewPerplexityClient(apiKey string, opts ...ClientOption) *PerplexityClient {
	return &PerplexityClient{
		apiKey: apiKey,
		model:  PerplexityModel,
		cfg:    newClientConfig(DefaultPerplexityURL, opts),
	}
}

// Chat sends messages and returns the first choice.
func (p *PerplexityClient) Chat(ctx context.Context, messages []Message, maxTokens int) (*Answer, error) {
	if p.apiKey == "" {
		return nil, ErrMissingKey
	}

	var resp chatResponse
	err := postJSON(ctx, p.cfg, "/chat/completions", p.apiKey, chatRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: 0.2,
		TopP:        0.9,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to query perplexity: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("failed to query perplexity: %w", ErrNoContent)
	}

	return &Answer{Content: resp.Choices[0].Message.Content, Usage: resp.Usage}, nil
}

// Research asks for a write-up of product suitable for a researchType
// article such as "review" or "comparison".
func (p *PerplexityClient) Research(ctx context.Context, product, researchType string) (*Answer, error) {
	return p.Chat(ctx, []Message{
		{Role: "system", Content: researchSystemPrompt},
		{Role: "user", Content: fmt.Sprintf(researchUserPrompt, product, researchType)},
	}, 1000)
}
