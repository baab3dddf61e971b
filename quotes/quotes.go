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

// Package quotes resolves exchange symbols and opening prices from Yahoo
// Finance's public search and chart endpoints, implementing the
// fusion.QuoteSource and accumulating.QuoteSource interfaces.
package quotes

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Swatinem/fondoeh/cache"
	"github.com/Swatinem/fondoeh/fx"
	"github.com/Swatinem/fondoeh/rational"
)

const (
	searchBase = "https://query2.finance.yahoo.com/v1/finance/search?quotesCount=5&newsCount=0&listsCount=0&q="
	chartBase  = "https://query1.finance.yahoo.com/v8/finance/chart/"
)

// preferredExchanges ranks the exchanges a multi-listed European security
// is searched on, cheapest settlement and best liquidity first.
var preferredExchanges = []string{"GER", "FRA", "VIE", "PAR", "AMS", "NYQ", "HKG"}

// Source queries Yahoo Finance for symbol metadata and daily opening
// prices, converting non-EUR quotes via an fx.Bridge.
type Source struct {
	client  *resty.Client
	limiter *rate.Limiter
	cache   *cache.Dir
	fx      *fx.Bridge
}

// New builds a Source backed by dir for raw response caching and bridge
// for non-EUR quote conversion.
func New(dir *cache.Dir, bridge *fx.Bridge) *Source {
	return &Source{
		client:  resty.New(),
		limiter: rate.NewLimiter(rate.Limit(5), 1),
		cache:   dir,
		fx:      bridge,
	}
}

type searchResponse struct {
	Quotes []searchQuote `json:"quotes"`
}

type searchQuote struct {
	Exchange  string `json:"exchange"`
	Symbol    string `json:"symbol"`
	ShortName string `json:"shortname"`
	LongName  string `json:"longname"`
}

// SearchSecurity resolves an ISIN or free-text query to the best-ranked
// exchange listing Yahoo Finance knows about.
func (s *Source) SearchSecurity(ctx context.Context, query string) (symbol, name string, found bool, err error) {
	url := searchBase + query
	body, err := s.cache.Fetch(ctx, "suche-"+query, func(ctx context.Context) (string, error) {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", err
		}
		resp, err := s.client.R().SetContext(ctx).Get(url)
		if err != nil {
			return "", fmt.Errorf("quotes: searching %q: %w", query, err)
		}
		if resp.IsError() {
			return "", fmt.Errorf("quotes: searching %q: HTTP %d", query, resp.StatusCode())
		}
		return resp.String(), nil
	})
	if err != nil {
		return "", "", false, err
	}

	var parsed searchResponse
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return "", "", false, fmt.Errorf("quotes: parsing search response for %q: %w", query, err)
	}

	best, ok := bestListing(parsed.Quotes)
	if !ok {
		zerolog.Ctx(ctx).Debug().Str("query", query).Msg("no recognized exchange listing found")
		return "", "", false, nil
	}

	name = best.LongName
	if name == "" {
		name = best.ShortName
	}
	return best.Symbol, name, true, nil
}

// bestListing picks the highest-ranked quote among the exchanges this
// engine knows how to price, preserving Yahoo's own ordering among ties.
func bestListing(quotes []searchQuote) (searchQuote, bool) {
	candidates := quotes[:0:0]
	for _, q := range quotes {
		for _, exchange := range preferredExchanges {
			if q.Exchange == exchange {
				candidates = append(candidates, q)
				break
			}
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return rank(candidates[i].Exchange) < rank(candidates[j].Exchange)
	})
	if len(candidates) == 0 {
		return searchQuote{}, false
	}
	return candidates[0], true
}

func rank(exchange string) int {
	for i, e := range preferredExchanges {
		if e == exchange {
			return i
		}
	}
	return len(preferredExchanges)
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Currency string `json:"currency"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open []float64 `json:"open"`
		} `json:"quote"`
	} `json:"indicators"`
}

// OpeningPriceEUR returns the opening price on the first trading day at or
// after date, converted to EUR, searching up to a 14-day window to skip
// past weekends and holidays the way the engine's lookahead tolerates.
func (s *Source) OpeningPriceEUR(ctx context.Context, symbol string, date time.Time) (rational.Rat, error) {
	from := date.AddDate(0, 0, -1)
	to := date.AddDate(0, 0, 14)

	url := fmt.Sprintf("%s%s?interval=1d&period1=%d&period2=%d", chartBase, symbol, from.Unix(), to.Unix())
	cacheKey := fmt.Sprintf("%s-%s", symbol, date.Format("2006-01-02"))

	body, err := s.cache.Fetch(ctx, cacheKey, func(ctx context.Context) (string, error) {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", err
		}
		resp, err := s.client.R().SetContext(ctx).Get(url)
		if err != nil {
			return "", fmt.Errorf("quotes: fetching chart for %s: %w", symbol, err)
		}
		if resp.IsError() {
			return "", fmt.Errorf("quotes: fetching chart for %s: HTTP %d", symbol, resp.StatusCode())
		}
		return resp.String(), nil
	})
	if err != nil {
		return rational.Zero, err
	}

	var parsed chartResponse
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return rational.Zero, fmt.Errorf("quotes: parsing chart for %s: %w", symbol, err)
	}

	currency, day, open, ok := firstOpenOnOrAfter(parsed, date)
	if !ok {
		return rational.Zero, fmt.Errorf("quotes: no trading day on or after %s for %s", date.Format("2006-01-02"), symbol)
	}
	return s.fx.RateToEUR(ctx, open, currency, day)
}

// firstOpenOnOrAfter scans a chart response's parallel timestamp/open
// arrays for the first trading day at or after date.
func firstOpenOnOrAfter(parsed chartResponse, date time.Time) (currency string, day time.Time, open rational.Rat, ok bool) {
	if len(parsed.Chart.Result) == 0 || len(parsed.Chart.Result[0].Indicators.Quote) == 0 {
		return "", time.Time{}, rational.Zero, false
	}

	result := parsed.Chart.Result[0]
	opens := result.Indicators.Quote[0].Open
	target := date.Truncate(24 * time.Hour)

	for i, ts := range result.Timestamp {
		candidateDay := time.Unix(ts, 0).UTC().Truncate(24 * time.Hour)
		if candidateDay.Before(target) {
			continue
		}
		if i >= len(opens) {
			break
		}
		return result.Meta.Currency, candidateDay, rational.QuantizeFloat(opens[i]), true
	}
	return "", time.Time{}, rational.Zero, false
}
