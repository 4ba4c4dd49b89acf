package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/sethvargo/go-retry"
)

const (
	chatModel   = "gpt-4o-mini"
	callTimeout = 90 * time.Second
	maxRetries  = 2
)

// OpenAI implements Generator against the OpenAI chat completions API.
// Transient failures are retried with fibonacci backoff; every call has
// a bounded timeout so a stuck request cannot stall a scheduler tick.
type OpenAI struct {
	client openai.Client
}

// NewOpenAI creates an OpenAI generator with the given API key.
func NewOpenAI(apiKey string) *OpenAI {
	return &OpenAI{client: openai.NewClient(option.WithAPIKey(apiKey))}
}

// ProposeClusters asks the model to group a topic into semantic clusters.
func (o *OpenAI) ProposeClusters(ctx context.Context, topic string, keywords []string) ([]ClusterProposal, error) {
	content, err := o.complete(ctx,
		"You are a content planning expert. Respond with JSON only.",
		BuildClusterPrompt(topic, keywords),
	)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Clusters []ClusterProposal `json:"clusters"`
	}
	if err := json.Unmarshal([]byte(stripFences(content)), &resp); err != nil {
		return nil, fmt.Errorf("parse cluster response: %w", err)
	}
	return resp.Clusters, nil
}

// GenerateArticle produces the body text for one article stub.
func (o *OpenAI) GenerateArticle(ctx context.Context, req ArticleRequest) (string, error) {
	profile, ok := ProfileFor(req.Role)
	if !ok {
		return "", fmt.Errorf("no prompt template for role %q", req.Role)
	}
	return o.complete(ctx, profile.SystemPrompt, BuildArticlePrompt(req))
}

// RewriteArticle rewrites an externally sourced item.
func (o *OpenAI) RewriteArticle(ctx context.Context, req RewriteRequest) (string, error) {
	system := "You are an editor rewriting syndicated content."
	if req.Role != "" {
		if profile, ok := ProfileFor(req.Role); ok {
			system = profile.SystemPrompt
		}
	}
	return o.complete(ctx, system, BuildRewritePrompt(req))
}

func (o *OpenAI) complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	var content string
	backoff := retry.WithMaxRetries(maxRetries, retry.NewFibonacci(time.Second))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: chatModel,
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(system),
				openai.UserMessage(user),
			},
		})
		if err != nil {
			return retry.RetryableError(fmt.Errorf("openai request: %w", err))
		}
		if len(resp.Choices) == 0 {
			return retry.RetryableError(fmt.Errorf("empty response from openai"))
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// stripFences removes markdown code fences some models wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
