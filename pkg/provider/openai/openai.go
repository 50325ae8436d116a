// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package openai implements provider.Generator for chat completion APIs
// that speak the OpenAI wire format: OpenAI itself, Together and Mistral.
package openai

import (
	"context"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/walteh/skelbench/pkg/prompt"
	"github.com/walteh/skelbench/pkg/provider"
	"github.com/walteh/skelbench/pkg/text"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// 🗺️ Backend describes one OpenAI-compatible endpoint
type Backend struct {
	Name      string
	BaseURL   string
	APIKeyEnv string
}

// Backends are registered with the provider registry at init.
var Backends = []Backend{
	{Name: "openai", BaseURL: "https://api.openai.com/v1", APIKeyEnv: "OPENAI_API_KEY"},
	{Name: "together", BaseURL: "https://api.together.xyz/v1", APIKeyEnv: "TOGETHER_API_KEY"},
	{Name: "mistral", BaseURL: "https://api.mistral.ai/v1", APIKeyEnv: "MISTRAL_API_KEY"},
}

func init() {
	for _, b := range Backends {
		provider.Register(b.Name, b.Factory)
	}
}

// chatCompleter is the part of *goopenai.Client used here.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

// 🏭 Factory fills unset settings from the backend defaults and builds a
// Generator. The API key falls back to the backend's environment variable.
func (b Backend) Factory(ctx context.Context, settings provider.Settings) (provider.Generator, error) {
	if settings.Name == "" {
		settings.Name = b.Name
	}
	if settings.BaseURL == "" {
		settings.BaseURL = b.BaseURL
	}
	if settings.APIKey == "" {
		settings.APIKey = os.Getenv(b.APIKeyEnv)
	}
	if settings.APIKey == "" {
		return nil, errors.Errorf("%s: set %s: %w", b.Name, b.APIKeyEnv, provider.ErrMissingAPIKey)
	}

	cfg := goopenai.DefaultConfig(settings.APIKey)
	cfg.BaseURL = settings.BaseURL

	zerolog.Ctx(ctx).Debug().
		Str("provider", settings.Name).
		Str("base_url", settings.BaseURL).
		Str("model", settings.Model).
		Msg("creating generator")

	return New(goopenai.NewClientWithConfig(cfg), settings)
}

// 🤖 Generator sends one chat completion per prompt
type Generator struct {
	client   chatCompleter
	settings provider.Settings
	prompts  *prompt.Store
}

var _ provider.Generator = (*Generator)(nil)

// New creates a Generator over client.
func New(client chatCompleter, settings provider.Settings) (*Generator, error) {
	if client == nil {
		return nil, errors.New("client is required")
	}
	if settings.Model == "" {
		return nil, errors.Errorf("%s: model is required", settings.Name)
	}
	if settings.Timeout <= 0 {
		settings.Timeout = provider.DefaultTimeout
	}
	if settings.Concurrency <= 0 {
		settings.Concurrency = 1
	}

	prompts, err := prompt.NewStore(settings.PromptCacheSize)
	if err != nil {
		return nil, err
	}

	return &Generator{
		client:   client,
		settings: settings,
		prompts:  prompts,
	}, nil
}

// 📝 Generate implements provider.Generator
func (g *Generator) Generate(ctx context.Context, payloads []string) ([]*string, error) {
	return g.fanOut(ctx, len(payloads), g.settings.SystemPrompt, func(i int) (string, error) {
		return payloads[i], nil
	})
}

// 📚 GenerateFewShot implements provider.Generator. A snippet without a
// prompt file yields nil; a missing promptDir fails the batch.
func (g *Generator) GenerateFewShot(ctx context.Context, snippetIDs []string, promptDir string) ([]*string, error) {
	if err := g.prompts.CheckDir(promptDir); err != nil {
		return nil, err
	}

	system, err := g.prompts.System(promptDir)
	if err != nil {
		return nil, err
	}
	if system == "" {
		system = g.settings.SystemPrompt
	}

	return g.fanOut(ctx, len(snippetIDs), system, func(i int) (string, error) {
		return g.prompts.Load(promptDir, snippetIDs[i])
	})
}

// fanOut completes n prompts with at most Concurrency in flight. Results are
// positional. Only batch-level failures are returned as errors.
func (g *Generator) fanOut(ctx context.Context, n int, system string, userPrompt func(i int) (string, error)) ([]*string, error) {
	logger := zerolog.Ctx(ctx).With().Str("provider", g.settings.Name).Str("model", g.settings.Model).Logger()

	results := make([]*string, n)

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.settings.Concurrency)

	for i := 0; i < n; i++ {
		i := i
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}

			user, err := userPrompt(i)
			if err != nil {
				logger.Warn().Err(err).Int("item", i).Msg("no prompt for item")
				return nil
			}

			out, err := g.complete(egctx, system, user)
			if err != nil {
				if isBatchLevel(egctx, err) {
					return errors.Errorf("item %d: %w", i, err)
				}
				logger.Warn().Err(err).Int("item", i).Msg("generation failed for item")
				return nil
			}

			results[i] = out
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// complete sends one prompt. Timeout bounds this request alone.
func (g *Generator) complete(ctx context.Context, system, user string) (*string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.settings.Timeout)
	defer cancel()

	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: user})

	resp, err := g.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       g.settings.Model,
		Messages:    messages,
		Temperature: g.settings.Temperature,
		MaxTokens:   g.settings.MaxTokens,
	})
	if err != nil {
		return nil, errors.Errorf("creating chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("response has no choices")
	}

	code := text.ExtractCode(resp.Choices[0].Message.Content)
	if text.IsBlank(code) {
		return nil, nil
	}
	return &code, nil
}

// isBatchLevel reports whether err should fail every item: authentication
// failures and the end of the batch context. A request that ran out its own
// timeout while ctx is still live is a per-item failure.
func isBatchLevel(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && isAuthStatus(apiErr.HTTPStatusCode) {
		return true
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && isAuthStatus(reqErr.HTTPStatusCode) {
		return true
	}

	return false
}

func isAuthStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
