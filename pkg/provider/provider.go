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

package provider

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gitlab.com/tozd/go/errors"
)

var (
	ErrUnknownProvider = errors.Base("unknown provider")
	ErrBatchFailed     = errors.Base("generation batch failed")
	ErrMissingAPIKey   = errors.Base("missing api key")
)

// DefaultTimeout bounds one chat completion request.
const DefaultTimeout = 5 * time.Minute

// aliasSuffix marks the "<name>-like" spelling of a registered provider.
const aliasSuffix = "-like"

// 🔀 Mode selects how prompts are built
type Mode string

const (
	ModeDirect  Mode = "direct"
	ModeFewShot Mode = "few-shot"
)

// ModeFor returns ModeFewShot when retrieval-augmented prompts are requested.
func ModeFor(rag bool) Mode {
	if rag {
		return ModeFewShot
	}
	return ModeDirect
}

// ⚙️ Settings configure one backend instance
type Settings struct {
	Name            string
	Model           string
	BaseURL         string
	APIKey          string
	Temperature     float32
	MaxTokens       int
	Timeout         time.Duration
	Concurrency     int
	SystemPrompt    string
	PromptCacheSize int
}

// 🔌 Generator turns prompts into generated code
//
// Results are positional: result i answers item i. A nil result marks a
// failure of that item alone. A returned error fails the whole batch.
type Generator interface {
	// 📝 Generate sends each payload as its own prompt
	Generate(ctx context.Context, payloads []string) ([]*string, error)

	// 📚 GenerateFewShot builds each prompt from the snippet's file in promptDir
	GenerateFewShot(ctx context.Context, snippetIDs []string, promptDir string) ([]*string, error)
}

// 🏭 Factory creates a Generator from settings
type Factory func(ctx context.Context, settings Settings) (Generator, error)

var (
	mu sync.RWMutex
	// 🗺️ providers is a map of provider names to factories
	providers = make(map[string]Factory)
)

// 📝 Register registers a provider factory
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	providers[Canonical(name)] = factory
}

// 🎯 Get returns the factory registered for name or its "-like" alias
func Get(name string) (Factory, error) {
	mu.RLock()
	defer mu.RUnlock()

	factory, ok := providers[Canonical(name)]
	if !ok {
		return nil, errors.Errorf("%q (options: %s): %w", name, strings.Join(namesLocked(), ", "), ErrUnknownProvider)
	}
	return factory, nil
}

// Names returns the registered provider names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	return namesLocked()
}

func namesLocked() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Canonical folds case and the "-like" alias suffix.
func Canonical(name string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), aliasSuffix)
}

// 🚨 BatchError reports a failure of a whole generation batch
type BatchError struct {
	Provider string
	Err      error
}

func (e *BatchError) Error() string {
	return "provider " + e.Provider + ": " + ErrBatchFailed.Error() + ": " + e.Err.Error()
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Is matches ErrBatchFailed.
func (e *BatchError) Is(target error) bool {
	return target == ErrBatchFailed
}

// NewBatchError wraps err as a batch failure of provider.
func NewBatchError(provider string, err error) error {
	return &BatchError{Provider: provider, Err: err}
}
