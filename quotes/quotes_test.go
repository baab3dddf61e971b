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
package quotes

import (
	"testing"
	"time"

	"github.com/Swatinem/fondoeh/rational"
)

func TestBestListing_PrefersGERThenFRA(t *testing.T) {
	quotes := []searchQuote{
		{Exchange: "NYQ", Symbol: "SIE", LongName: "Siemens US"},
		{Exchange: "GER", Symbol: "SIE.DE", LongName: "Siemens AG"},
		{Exchange: "FRA", Symbol: "SIE.F", LongName: "Siemens AG Frankfurt"},
	}

	best, ok := bestListing(quotes)
	if !ok {
		t.Fatal("expected a listing")
	}
	if best.Symbol != "SIE.DE" {
		t.Errorf("Symbol = %q, want SIE.DE", best.Symbol)
	}
}

func TestBestListing_IgnoresUnrecognizedExchanges(t *testing.T) {
	quotes := []searchQuote{
		{Exchange: "LSE", Symbol: "FOO.L"},
	}
	if _, ok := bestListing(quotes); ok {
		t.Fatal("expected no listing among unrecognized exchanges")
	}
}

func TestFirstOpenOnOrAfter_SkipsWeekendGap(t *testing.T) {
	friday := time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC)
	monday := time.Date(2023, 9, 4, 0, 0, 0, 0, time.UTC)
	saturday := friday.AddDate(0, 0, 1)

	parsed := chartResponse{}
	parsed.Chart.Result = []chartResult{{}}
	parsed.Chart.Result[0].Meta.Currency = "USD"
	parsed.Chart.Result[0].Timestamp = []int64{friday.Unix(), monday.Unix()}
	parsed.Chart.Result[0].Indicators.Quote = []struct {
		Open []float64 `json:"open"`
	}{{Open: []float64{100.5, 101.25}}}

	currency, day, open, ok := firstOpenOnOrAfter(parsed, saturday)
	if !ok {
		t.Fatal("expected a trading day")
	}
	if currency != "USD" {
		t.Errorf("currency = %q", currency)
	}
	if !day.Equal(monday) {
		t.Errorf("day = %v, want %v", day, monday)
	}
	if rational.Cmp(open, rational.QuantizeFloat(101.25)) != 0 {
		t.Errorf("open = %v", open)
	}
}
