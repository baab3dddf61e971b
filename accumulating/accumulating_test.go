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
package accumulating_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Swatinem/fondoeh/accumulating"
	"github.com/Swatinem/fondoeh/ledger"
	"github.com/Swatinem/fondoeh/rational"
)

func r(num, den int64) rational.Rat { return rational.New(num, den) }

type fakeQuotes struct {
	byYear map[int]rational.Rat
}

func (f *fakeQuotes) OpeningPriceEUR(ctx context.Context, symbol string, date time.Time) (rational.Rat, error) {
	return f.byYear[date.Year()], nil
}

func TestApply_TwoYearsCompoundCorrection(t *testing.T) {
	sec := &ledger.Security{
		ISIN:   "LU0000000000",
		Type:   ledger.AccumulatingFund,
		Symbol: "ACC",
	}
	sec.Ledger.Years = []ledger.Year{
		{
			Year:             2021,
			InventoryAtStart: ledger.Inventory{},
			InventoryAtEnd:   ledger.Inventory{Units: r(100, 1), AvgCost: r(10, 1)},
		},
		{
			Year:             2022,
			InventoryAtStart: ledger.Inventory{Units: r(100, 1), AvgCost: r(10, 1)},
			InventoryAtEnd:   ledger.Inventory{Units: r(100, 1), AvgCost: r(10, 1)},
		},
	}

	pass := &accumulating.Pass{
		Quotes: &fakeQuotes{byYear: map[int]rational.Rat{
			2021: r(11, 1),
			2022: r(12, 1),
		}},
		Today: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := pass.Apply(context.Background(), sec); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	y2021 := sec.Ledger.Years[0]
	if len(y2021.Events) != 1 {
		t.Fatalf("2021 events = %d, want 1", len(y2021.Events))
	}
	// valueStart=0 (first year), valueEnd=100*11=1100; synthetic = max(0.9*1100, 0.1*1100) = 990
	want2021Synthetic := r(990, 1)
	if rational.Cmp(y2021.Events[0].Tax.SyntheticDistributions937, want2021Synthetic) != 0 {
		t.Errorf("2021 synthetic937 = %v, want %v", y2021.Events[0].Tax.SyntheticDistributions937, want2021Synthetic)
	}
	// correction2021 = round4(990/100) = 9.9
	wantAvgCost2021 := r(199, 10) // 10 + 9.9
	if rational.Cmp(y2021.InventoryAtEnd.AvgCost, wantAvgCost2021) != 0 {
		t.Errorf("2021 avg cost = %v, want %v", y2021.InventoryAtEnd.AvgCost, wantAvgCost2021)
	}

	y2022 := sec.Ledger.Years[1]
	// the 2021 correction must have propagated onto 2022's opening inventory
	if rational.Cmp(y2022.InventoryAtStart.AvgCost, wantAvgCost2021) != 0 {
		t.Errorf("2022 start avg cost = %v, want propagated %v", y2022.InventoryAtStart.AvgCost, wantAvgCost2021)
	}
	// valueStart=1100 (carried from 2021's valueEnd), valueEnd=100*12=1200
	// synthetic = max(0.9*100, 0.1*1200) = max(90,120) = 120
	want2022Synthetic := r(120, 1)
	if rational.Cmp(y2022.Events[0].Tax.SyntheticDistributions937, want2022Synthetic) != 0 {
		t.Errorf("2022 synthetic937 = %v, want %v", y2022.Events[0].Tax.SyntheticDistributions937, want2022Synthetic)
	}
}

func TestApply_QuoteGapSkipsYearWithoutFailing(t *testing.T) {
	sec := &ledger.Security{
		ISIN:   "LU0000000001",
		Type:   ledger.AccumulatingFund,
		Symbol: "ACC2",
	}
	sec.Ledger.Years = []ledger.Year{
		{Year: 2021, InventoryAtEnd: ledger.Inventory{Units: r(10, 1), AvgCost: r(10, 1)}},
	}

	pass := &accumulating.Pass{
		Quotes: &errorQuotes{},
		Today:  time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := pass.Apply(context.Background(), sec); err != nil {
		t.Fatalf("Apply should not hard-fail on a quote gap: %v", err)
	}
	if len(sec.Ledger.Years[0].Events) != 0 {
		t.Errorf("expected no synthetic event when the quote is unavailable")
	}
}

type errorQuotes struct{}

func (errorQuotes) OpeningPriceEUR(ctx context.Context, symbol string, date time.Time) (rational.Rat, error) {
	return rational.Zero, errors.New("no quote available")
}
