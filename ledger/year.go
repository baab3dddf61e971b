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
package ledger

import "time"

// Year is one calendar year's slice of a security's ledger.
// Invariant: InventoryAtStart of year N+1 equals InventoryAtEnd of year N;
// a year with non-zero inventory and no events is still materialized with
// InventoryAtStart == InventoryAtEnd.
type Year struct {
	Year             int
	InventoryAtStart Inventory
	InventoryAtEnd   Inventory
	Events           []Event
}

// FirstDate returns Jan 1 of the year, used when there are no events (a
// gap-filled year) and a date is still needed for display.
func (y Year) FirstDate() time.Time {
	return time.Date(y.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// LastDate returns the date of the last event, or Dec 31 of the year if
// there are none (a gap-filled year).
func (y Year) LastDate() time.Time {
	if len(y.Events) == 0 {
		return time.Date(y.Year, time.December, 31, 0, 0, 0, 0, time.UTC)
	}
	return y.Events[len(y.Events)-1].Date
}

// TaxTotals sums every event's tax record for the year, giving the
// statutory line-item totals a summary display needs.
func (y Year) TaxTotals() TaxRecord {
	var total TaxRecord
	for _, e := range y.Events {
		total.Add(e.Tax)
	}
	return total
}

// YearLedger is the append-only, gap-free, strictly-increasing sequence of
// Years a fusion engine run produces for one security.
type YearLedger struct {
	Years []Year
}

// Append is the sole mutator of a YearLedger: it gap-fills up to the
// event's year, selects or creates that year, and records the event.
func (l *YearLedger) Append(event Event) {
	y := event.Date.Year()
	l.closeThroughLocked(y)

	year := l.selectOrCreateYear(y)
	year.InventoryAtEnd = event.InventoryAfter
	year.Events = append(year.Events, event)
}

// selectOrCreateYear returns a pointer to the Year for y, creating it (with
// InventoryAtStart copied from the prior year's end, or the zero Inventory
// if the ledger is empty) if it doesn't already exist as the last year.
func (l *YearLedger) selectOrCreateYear(y int) *Year {
	if n := len(l.Years); n > 0 && l.Years[n-1].Year == y {
		return &l.Years[n-1]
	}

	var start Inventory
	if n := len(l.Years); n > 0 {
		start = l.Years[n-1].InventoryAtEnd
	}
	l.Years = append(l.Years, Year{
		Year:             y,
		InventoryAtStart: start,
		InventoryAtEnd:   start,
	})
	return &l.Years[len(l.Years)-1]
}

// CloseThrough extends the ledger with empty Year records up through
// horizon whenever the ledger's last year has a non-zero ending inventory.
// It is public API because the fusion engine calls it once its drive loop
// finishes, to keep a still-open position's ledger running through "today"
// even when the last event predates it.
func (l *YearLedger) CloseThrough(horizon int) {
	l.closeThroughLocked(horizon)
}

func (l *YearLedger) closeThroughLocked(horizon int) {
	n := len(l.Years)
	if n == 0 {
		return
	}
	last := l.Years[n-1]
	if last.InventoryAtEnd.Units.IsZero() || last.Year >= horizon {
		return
	}
	for y := last.Year + 1; y <= horizon; y++ {
		l.Years = append(l.Years, Year{
			Year:             y,
			InventoryAtStart: last.InventoryAtEnd,
			InventoryAtEnd:   last.InventoryAtEnd,
		})
	}
}

// Year returns the Year record for the given calendar year, if present.
func (l *YearLedger) Year(year int) (Year, bool) {
	for _, y := range l.Years {
		if y.Year == year {
			return y, true
		}
	}
	return Year{}, false
}

// Last returns the ledger's most recent Year, if any.
func (l *YearLedger) Last() (Year, bool) {
	if len(l.Years) == 0 {
		return Year{}, false
	}
	return l.Years[len(l.Years)-1], true
}
