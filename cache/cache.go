// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache is a content-addressable, on-disk cache for the raw
// response bodies of the HTTP collaborators (quotes, notifications, FX
// rates). A hit skips the network call entirely: none of these upstreams
// are asked to relitigate history that was already fetched once.
package cache

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Dir is a cache rooted at a directory, one file per key named "<key>.txt".
type Dir struct {
	path string
}

// Open ensures dir exists and returns a Dir backed by it.
func Open(dir string) (*Dir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Dir{path: dir}, nil
}

// Fetch returns the cached body for key if present, otherwise calls fetch
// and persists its result before returning it. A failure to persist is
// logged and otherwise ignored: the fetched body is still returned.
func (d *Dir) Fetch(ctx context.Context, key string, fetch func(ctx context.Context) (string, error)) (string, error) {
	path := filepath.Join(d.path, key+".txt")

	if body, err := os.ReadFile(path); err == nil {
		return string(body), nil
	}

	body, err := fetch(ctx)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("failed to persist cache entry")
	}
	return body, nil
}
