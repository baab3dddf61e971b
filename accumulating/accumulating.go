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

// Package accumulating runs the second pass over an already-fused
// accumulating-fund ledger: for every closed year the fund was held, it
// estimates the synthetic distribution under §186 (2) 3. InvFG 2011 from
// year-end redemption prices, and splices the resulting basis correction
// onto the year as an additional event. The correction compounds forward
// onto every later year's inventory snapshot.
package accumulating

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Swatinem/fondoeh/ledger"
	"github.com/Swatinem/fondoeh/rational"
	"github.com/Swatinem/fondoeh/tax"
)

// QuoteSource resolves a fund's EUR-denominated redemption price nearest
// to (but not before) a given date, within a bounded lookahead.
type QuoteSource interface {
	OpeningPriceEUR(ctx context.Context, symbol string, date time.Time) (rational.Rat, error)
}

// Pass estimates and applies synthetic distributions across a security's
// already-fused ledger, up through Today.
type Pass struct {
	Quotes QuoteSource
	Today  time.Time
}

// Apply walks sec.Ledger.Years in order, maintaining a running cost-basis
// correction and a running value-at-start, per the terminal-date-quote
// algorithm. The walk stops at the first year whose last date is after
// p.Today (not yet closed): that year still has the correction carried so
// far added to its inventory, but gets no synthetic distribution. A year
// with a quote gap is logged and skipped, without losing the running state
// carried into later years.
func (p *Pass) Apply(ctx context.Context, sec *ledger.Security) error {
	if sec.Symbol == "" {
		return fmt.Errorf("accumulating: %s has no resolved symbol, cannot price synthetic distributions", sec.ISIN)
	}
	logger := zerolog.Ctx(ctx).With().Str("isin", sec.ISIN).Logger()

	runningCorrection := rational.Zero
	valueAtStart := rational.Zero

	for i := range sec.Ledger.Years {
		year := &sec.Ledger.Years[i]

		if !runningCorrection.IsZero() {
			if !year.InventoryAtStart.Units.IsZero() {
				year.InventoryAtStart.AvgCost = rational.Add(year.InventoryAtStart.AvgCost, runningCorrection)
			}
			if !year.InventoryAtEnd.Units.IsZero() {
				year.InventoryAtEnd.AvgCost = rational.Add(year.InventoryAtEnd.AvgCost, runningCorrection)
			}
		}

		if year.LastDate().After(p.Today) {
			break
		}

		if year.InventoryAtEnd.Units.IsZero() {
			valueAtStart = rational.Zero
			continue
		}

		endDate := time.Date(year.Year, time.December, 31, 0, 0, 0, 0, time.UTC)
		quoteEnd, err := p.Quotes.OpeningPriceEUR(ctx, sec.Symbol, endDate)
		if err != nil {
			logger.Warn().Int("year", year.Year).Err(err).Msg("no year-end quote within lookahead, skipping synthetic distribution")
			continue
		}

		units := year.InventoryAtEnd.Units
		valueAtEnd := rational.Mul(units, quoteEnd)

		deltaAvgCost, rec := tax.Synthetic9010(units, valueAtStart, valueAtEnd)
		runningCorrection = rational.Add(runningCorrection, deltaAvgCost)
		year.InventoryAtEnd.AvgCost = rational.Add(year.InventoryAtEnd.AvgCost, deltaAvgCost)

		year.Events = append(year.Events, ledger.Event{
			Date:           endDate,
			InventoryAfter: year.InventoryAtEnd,
			Kind:           ledger.EventAnnualNotification,
			Tax:            rec,
			Units:          units,
		})

		valueAtStart = valueAtEnd
	}
	return nil
}
