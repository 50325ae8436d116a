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

// Package prompt reads few-shot prompts from a prompt directory laid out as
// <snippetId>.txt files plus an optional system.txt.
package prompt

import (
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"gitlab.com/tozd/go/errors"
)

var (
	ErrPromptNotFound    = errors.Base("prompt not found")
	ErrPromptDirNotFound = errors.Base("prompt directory not found")
)

// DefaultCacheSize is used when a non-positive size is requested.
const DefaultCacheSize = 512

// SystemFile holds the optional system prompt of a prompt directory.
const SystemFile = "system.txt"

const promptExt = ".txt"

// 📚 Store reads prompt files, keeping recently used ones in memory
type Store struct {
	cache *lru.Cache[string, string]
}

// 🏭 NewStore creates a store caching up to size prompts
func NewStore(size int) (*Store, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, errors.Errorf("creating prompt cache: %w", err)
	}
	return &Store{cache: cache}, nil
}

// CheckDir returns ErrPromptDirNotFound unless dir is a directory.
func (s *Store) CheckDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Errorf("%s: %w", dir, ErrPromptDirNotFound)
		}
		return errors.Errorf("checking prompt directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return errors.Errorf("%s is not a directory: %w", dir, ErrPromptDirNotFound)
	}
	return nil
}

// 📄 Load returns the prompt for snippetID in dir.
func (s *Store) Load(dir, snippetID string) (string, error) {
	if snippetID == "" || strings.ContainsAny(snippetID, `/\`) || snippetID == "." || snippetID == ".." {
		return "", errors.Errorf("snippet id %q: %w", snippetID, ErrPromptNotFound)
	}
	return s.read(filepath.Join(dir, snippetID+promptExt))
}

// System returns the system prompt of dir, or "" when there is none.
func (s *Store) System(dir string) (string, error) {
	text, err := s.read(filepath.Join(dir, SystemFile))
	if errors.Is(err, ErrPromptNotFound) {
		return "", nil
	}
	return text, err
}

func (s *Store) read(path string) (string, error) {
	if text, ok := s.cache.Get(path); ok {
		return text, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Errorf("%s: %w", path, ErrPromptNotFound)
		}
		return "", errors.Errorf("reading prompt %s: %w", path, err)
	}

	text := strings.TrimSpace(string(data))
	s.cache.Add(path, text)
	return text, nil
}

// Len returns the number of cached prompts.
func (s *Store) Len() int {
	return s.cache.Len()
}
