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
package journal_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Swatinem/fondoeh/journal"
	"github.com/Swatinem/fondoeh/ledger"
	"github.com/Swatinem/fondoeh/rational"
)

const sample = `
typ: etf
name: Foo
isin: DE0000000000
transaktionen:
- kauf: [2023-01-01, 40, 30.023]
- ausschüttung: [2023-01-15, 1.23]
- split: [2023-02-02, 1/3]
- split: [2023-03-03, 3]
- verkauf: [2023-04-04, 40, 32]
`

func writeSample(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile_ParsesSampleFundJournal(t *testing.T) {
	dir := t.TempDir()
	path := writeSample(t, dir, "foo.yml", sample)

	sec, err := journal.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if sec.Type != ledger.DistributingFund {
		t.Errorf("Type = %v, want DistributingFund", sec.Type)
	}
	if sec.ISIN != "DE0000000000" {
		t.Errorf("ISIN = %q", sec.ISIN)
	}
	if len(sec.Raw) != 5 {
		t.Fatalf("len(Raw) = %d, want 5", len(sec.Raw))
	}

	wantKinds := []ledger.TransactionKind{
		ledger.Purchase, ledger.Distribution, ledger.Split, ledger.Split, ledger.Sale,
	}
	for i, want := range wantKinds {
		if sec.Raw[i].Kind != want {
			t.Errorf("Raw[%d].Kind = %v, want %v", i, sec.Raw[i].Kind, want)
		}
	}

	purchase := sec.Raw[0]
	if !purchase.Date.Equal(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("purchase date = %v", purchase.Date)
	}
	if rational.Cmp(purchase.Units, rational.FromInt(40)) != 0 {
		t.Errorf("purchase units = %v", purchase.Units)
	}

	firstSplit := sec.Raw[2]
	if rational.Cmp(firstSplit.Factor, rational.New(1, 3)) != 0 {
		t.Errorf("split factor = %v, want 1/3", firstSplit.Factor)
	}
}

func TestLoadFile_RejectsTransactionInvalidForSecurityType(t *testing.T) {
	dir := t.TempDir()
	path := writeSample(t, dir, "bad.yml", `
typ: aktie
name: Bar
isin: AT0000000000
transaktionen:
- ausschüttung: [2023-01-15, 1.23]
`)

	if _, err := journal.LoadFile(path); err == nil {
		t.Fatal("expected an error for a distribution on a single share")
	}
}

func TestDiscover_DedupesAndFiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeSample(t, dir, "a.YML", sample)
	writeSample(t, sub, "b.yaml", sample)
	writeSample(t, sub, "notes.txt", "ignored")

	found, err := journal.Discover([]string{dir, dir})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("found = %v, want 2 files", found)
	}
}
