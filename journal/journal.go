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

// Package journal loads the human-edited, one-file-per-security YAML
// transaction journal into ledger.Security values ready for a fusion
// engine run.
package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Swatinem/fondoeh/ledger"
)

// document is the top-level shape of one journal file.
type document struct {
	Type   string            `yaml:"typ"`
	Name   string            `yaml:"name"`
	ISIN   string            `yaml:"isin"`
	Symbol string            `yaml:"symbol"`
	Raw    []transactionYAML `yaml:"transaktionen"`
}

// Discover walks each given path recursively, collecting *.yml/*.yaml files
// (case-insensitive), deduplicated by absolute path. Non-directory paths
// are included directly regardless of extension.
func Discover(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var found []string

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
		if !info.IsDir() {
			if err := addFile(seen, &found, root); err != nil {
				return nil, err
			}
			continue
		}
		err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			if ext != ".yml" && ext != ".yaml" {
				return nil
			}
			return addFile(seen, &found, path)
		})
		if err != nil {
			return nil, fmt.Errorf("journal: walking %s: %w", root, err)
		}
	}

	sort.Strings(found)
	return found, nil
}

func addFile(seen map[string]bool, found *[]string, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("journal: resolving %s: %w", path, err)
	}
	if seen[abs] {
		return nil
	}
	seen[abs] = true
	*found = append(*found, abs)
	return nil
}

// Load reads and parses every journal file discovered under paths into a
// Security, aborting on the first file whose contents are malformed; the
// returned error names the offending path.
func Load(paths []string) ([]*ledger.Security, error) {
	files, err := Discover(paths)
	if err != nil {
		return nil, err
	}

	securities := make([]*ledger.Security, 0, len(files))
	for _, path := range files {
		sec, err := LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("journal: %s: %w", path, err)
		}
		securities = append(securities, sec)
	}
	return securities, nil
}

// LoadFile parses a single journal file into a Security.
func LoadFile(path string) (*ledger.Security, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc document
	if err := yaml.Unmarshal(contents, &doc); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	secType, err := ledger.ParseSecurityType(doc.Type)
	if err != nil {
		return nil, err
	}

	raw := make([]ledger.RawTransaction, len(doc.Raw))
	for i, t := range doc.Raw {
		raw[i] = t.RawTransaction
		if !t.RawTransaction.Kind.ValidFor(secType) {
			return nil, fmt.Errorf("transaction %q is not valid for security type %q (isin %s)", t.RawTransaction.Kind, secType, doc.ISIN)
		}
	}

	return &ledger.Security{
		ISIN:   doc.ISIN,
		Type:   secType,
		Name:   doc.Name,
		Symbol: doc.Symbol,
		Raw:    raw,
	}, nil
}
