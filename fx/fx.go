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

// Package fx resolves EUR reference rates published daily by the European
// Central Bank, needed to convert a notification's native-currency detail
// fields into EUR.
package fx

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/Swatinem/fondoeh/cache"
	"github.com/Swatinem/fondoeh/rational"
)

const ecbBase = "https://www.ecb.europa.eu/stats/policy_and_exchange_rates/euro_reference_exchange_rates/html"

// Bridge resolves currency-units-per-EUR rates for a whole-history series, one per
// supported currency, lazily fetched and cached in memory for the process
// lifetime.
type Bridge struct {
	client *resty.Client
	cache  *cache.Dir
	today  string // cache-key date stamp, one ECB fetch per currency per day

	series *haxmap.Map[string, map[string]rational.Rat] // currency -> "2006-01-02" -> native units per EUR
}

// New builds a Bridge backed by dir for the raw ECB document cache. today
// is folded into the cache key so a run never serves yesterday's cached
// document once a new day's reference rates are published.
func New(dir *cache.Dir, today time.Time) *Bridge {
	return &Bridge{
		client: resty.New(),
		cache:  dir,
		today:  today.Format("2006-01-02"),
		series: haxmap.New[string, map[string]rational.Rat](),
	}
}

// Rate returns the ECB reference rate for currency on date, expressed as
// currency-units per EUR (e.g. USD/EUR ~ 1.08). EUR itself is always 1. A
// date with no published fixing (weekend, holiday) returns an error.
func (b *Bridge) Rate(ctx context.Context, currency string, date time.Time) (rational.Rat, error) {
	if currency == "EUR" {
		return rational.FromInt(1), nil
	}

	rates, err := b.ratesFor(ctx, currency)
	if err != nil {
		return rational.Zero, err
	}

	key := date.Format("2006-01-02")
	rate, ok := rates[key]
	if !ok {
		return rational.Zero, fmt.Errorf("fx: no %s reference rate published for %s", currency, key)
	}
	return rate, nil
}

// RateToEUR returns the EUR value of amount, given in currency on date.
func (b *Bridge) RateToEUR(ctx context.Context, amount rational.Rat, currency string, date time.Time) (rational.Rat, error) {
	rate, err := b.Rate(ctx, currency, date)
	if err != nil {
		return rational.Zero, err
	}
	return rational.Quo(amount, rate), nil
}

func (b *Bridge) ratesFor(ctx context.Context, currency string) (map[string]rational.Rat, error) {
	if rates, ok := b.series.Get(currency); ok {
		return rates, nil
	}

	url := fmt.Sprintf("%s/%s.xml", ecbBase, strings.ToLower(currency))
	key := fmt.Sprintf("%s-%s", currency, b.today)

	doc, err := b.cache.Fetch(ctx, key, func(ctx context.Context) (string, error) {
		resp, err := b.client.R().SetContext(ctx).Get(url)
		if err != nil {
			return "", fmt.Errorf("fx: fetching %s rates: %w", currency, err)
		}
		if resp.IsError() {
			return "", fmt.Errorf("fx: fetching %s rates: HTTP %d", currency, resp.StatusCode())
		}
		return resp.String(), nil
	})
	if err != nil {
		return nil, err
	}

	rates := parseECBSeries(doc)
	zerolog.Ctx(ctx).Debug().Str("currency", currency).Int("points", len(rates)).Msg("loaded ECB reference rate series")
	b.series.Set(currency, rates)
	return rates, nil
}

// parseECBSeries extracts the same `<Obs TIME_PERIOD="..." OBS_VALUE="..."`
// lines the ECB's dataset pages embed, without a full XML parse.
func parseECBSeries(doc string) map[string]rational.Rat {
	rates := make(map[string]rational.Rat)
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(line)
		rest, ok := strings.CutPrefix(line, `<Obs TIME_PERIOD="`)
		if !ok {
			continue
		}
		date, rest, ok := strings.Cut(rest, `" OBS_VALUE="`)
		if !ok {
			continue
		}
		value, _, ok := strings.Cut(rest, `" OBS`)
		if !ok {
			continue
		}
		rate, err := rational.Parse(value)
		if err != nil {
			continue
		}
		rates[date] = rate
	}
	return rates
}
