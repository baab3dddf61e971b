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
package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Swatinem/fondoeh/ledger"
	"github.com/Swatinem/fondoeh/rational"
)

func sampleSecurity() *ledger.Security {
	sec := &ledger.Security{
		ISIN: "AT0000000001",
		Type: ledger.SingleShare,
		Name: "Beispiel AG",
	}
	sec.Ledger.Append(ledger.Event{
		Date:           time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC),
		Kind:           ledger.EventPurchase,
		Units:          rational.FromInt(10),
		UnitPrice:      rational.New(15, 1),
		InventoryAfter: ledger.Inventory{Units: rational.FromInt(10), AvgCost: rational.New(15, 1)},
	})
	sec.Ledger.Append(ledger.Event{
		Date:           time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC),
		Kind:           ledger.EventSale,
		Units:          rational.FromInt(4),
		UnitPrice:      rational.New(20, 1),
		InventoryAfter: ledger.Inventory{Units: rational.FromInt(6), AvgCost: rational.New(15, 1)},
		Tax: ledger.TaxRecord{
			Kind:     ledger.TaxSale,
			Gains994: rational.New(20, 1),
		},
	})
	return sec
}

func TestRows_IncludesStartAndEndInventorySnapshots(t *testing.T) {
	sec := sampleSecurity()
	rows := Rows(sec, nil)

	if len(rows) != 4 {
		t.Fatalf("len(rows) = %d, want 4 (start, 2 events, end)", len(rows))
	}
	if rows[0].Aktion != "Bestand" || rows[len(rows)-1].Aktion != "Bestand" {
		t.Errorf("expected leading and trailing Bestand rows, got %q .. %q", rows[0].Aktion, rows[len(rows)-1].Aktion)
	}
	if rows[1].Aktion != "Kauf" || rows[2].Aktion != "Verkauf" {
		t.Errorf("unexpected middle rows: %q, %q", rows[1].Aktion, rows[2].Aktion)
	}
	if rows[2].Ueberschuss994 != "20.00" {
		t.Errorf("Ueberschuss994 = %q, want 20.00", rows[2].Ueberschuss994)
	}
}

func TestRows_FiltersByYear(t *testing.T) {
	sec := sampleSecurity()
	sec.Ledger.Append(ledger.Event{
		Date:           time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Kind:           ledger.EventSale,
		Units:          rational.FromInt(1),
		UnitPrice:      rational.New(22, 1),
		InventoryAfter: ledger.Inventory{Units: rational.FromInt(5), AvgCost: rational.New(15, 1)},
	})

	year := 2022
	rows := Rows(sec, &year)
	for _, r := range rows {
		if !strings.HasPrefix(r.Datum, "2022") {
			t.Errorf("row for wrong year leaked through: %+v", r)
		}
	}
}

func TestSorted_OrdersByTypeThenName(t *testing.T) {
	fund := &ledger.Security{Name: "Z Fonds", Type: ledger.AccumulatingFund}
	share := &ledger.Security{Name: "A Aktie", Type: ledger.SingleShare}
	etf := &ledger.Security{Name: "M ETF", Type: ledger.DistributingFund}

	ordered := Sorted([]*ledger.Security{fund, share, etf})
	if ordered[0] != share || ordered[1] != etf || ordered[2] != fund {
		t.Fatalf("unexpected order: %v", ordered)
	}
}

func TestWriteTSV_ProducesTabSeparatedHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTSV(&buf, []*ledger.Security{sampleSecurity()}, nil); err != nil {
		t.Fatalf("WriteTSV: %v", err)
	}

	firstLine := strings.SplitN(buf.String(), "\n", 2)[0]
	if !strings.Contains(firstLine, "\t") {
		t.Errorf("expected tab-separated header, got %q", firstLine)
	}
	if !strings.HasPrefix(firstLine, "Name\tISIN\tArt\tDatum") {
		t.Errorf("unexpected header: %q", firstLine)
	}
}
