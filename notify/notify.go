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

// Package notify fetches a fund's official tax notifications (steuerliche
// Meldungen) from the OeKB reporting-agent platform, implementing
// fusion.NotificationSource.
package notify

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/Swatinem/fondoeh/cache"
	"github.com/Swatinem/fondoeh/fx"
	"github.com/Swatinem/fondoeh/ledger"
	"github.com/Swatinem/fondoeh/rational"
)

const (
	listBase   = "https://my.oekb.at/fond-info/rest/public/steuerMeldung/isin"
	reportBase = "https://my.oekb.at/fond-info/rest/public/steuerMeldung/stmId"

	// The platform 500s without this header; its value is an opaque,
	// publicly-served base64 blob, not a credential.
	contextHeaderName  = "OeKB-Platform-Context"
	contextHeaderValue = "eyJsYW5ndWFnZSI6ImRlIiwicGxhdGZvcm0iOiJLTVMiLCJkYXNoYm9hcmQiOiJLTVNfT1VUUFVUIn0="
)

// Source queries the OeKB public notification platform directly; OeKB has
// no documented rate limit, so a conservative client-side cap avoids
// tripping one anyway.
type Source struct {
	client  *resty.Client
	limiter *rate.Limiter
	fx      *fx.Bridge
	cache   *cache.Dir
	today   string
}

// New builds a Source. bridge converts each notification's native-currency
// detail fields to EUR; dir backs the on-disk response cache; today is
// folded into the notification-list cache key so a new day re-lists.
func New(bridge *fx.Bridge, dir *cache.Dir, today time.Time) *Source {
	return &Source{
		client:  resty.New().SetHeader(contextHeaderName, contextHeaderValue),
		limiter: rate.NewLimiter(rate.Limit(5), 1),
		fx:      bridge,
		cache:   dir,
		today:   today.Format("2006-01-02"),
	}
}

type rawList struct {
	List []rawListEntry `json:"list"`
}

type rawListEntry struct {
	MeldeID           uint32  `json:"stmId"`
	Name              string  `json:"isinBez"`
	Zufluss           string  `json:"zufluss"`
	ZuflussKorrigiert *string `json:"zuflussFmv"`
	GueltBis          *string `json:"gueltBis"`
	Waehrung          string  `json:"waehrung"`
	IstJahresmeldung  string  `json:"jahresdatenmeldung"`
}

// FetchNotifications returns every current (non-superseded) notification
// for isin, oldest first.
func (s *Source) FetchNotifications(ctx context.Context, isin string) ([]*ledger.Notification, string, error) {
	key := fmt.Sprintf("meldungen-%s-%s", isin, s.today)
	body, err := s.cache.Fetch(ctx, key, func(ctx context.Context) (string, error) {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", err
		}
		resp, err := s.client.R().SetContext(ctx).Get(fmt.Sprintf("%s/%s", listBase, isin))
		if err != nil {
			return "", fmt.Errorf("notify: listing notifications for %s: %w", isin, err)
		}
		if resp.IsError() {
			return "", fmt.Errorf("notify: listing notifications for %s: HTTP %d", isin, resp.StatusCode())
		}
		return resp.String(), nil
	})
	if err != nil {
		return nil, "", err
	}

	var parsed rawList
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return nil, "", fmt.Errorf("notify: parsing notification list for %s: %w", isin, err)
	}

	return parseNotificationList(parsed)
}

// parseNotificationList drops superseded notifications (those whose
// GueltBis is set) and sorts the rest oldest first.
func parseNotificationList(parsed rawList) ([]*ledger.Notification, string, error) {
	var name string
	notifications := make([]*ledger.Notification, 0, len(parsed.List))
	for _, entry := range parsed.List {
		if entry.GueltBis != nil {
			continue
		}

		dateStr := entry.Zufluss
		if entry.ZuflussKorrigiert != nil {
			dateStr = *entry.ZuflussKorrigiert
		}
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, "", fmt.Errorf("notify: parsing notification date %q: %w", dateStr, err)
		}

		name = entry.Name
		notifications = append(notifications, &ledger.Notification{
			ID:       entry.MeldeID,
			Date:     date,
			IsAnnual: entry.IstJahresmeldung == "JA",
			Currency: entry.Waehrung,
		})
	}

	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].Date.Before(notifications[j].Date)
	})

	return notifications, name, nil
}

type rawDetailList struct {
	List []rawDetailEntry `json:"list"`
}

type rawDetailEntry struct {
	Key   string `json:"steuerName"`
	Value string `json:"pvMitOption4"`
}

// applyDetail maps the platform's flat key/value detail rows onto n's
// typed per-unit fields; unrecognized keys (e.g. AIF-specific ones, not
// yet reported for privatAnl) are ignored.
func applyDetail(n *ledger.Notification, parsed rawDetailList) error {
	for _, row := range parsed.List {
		var target *rational.Rat
		switch row.Key {
		case "StB_E1KV_Ausschuettungen":
			target = &n.Distributions
		case "StB_E1KV_AGErtraege":
			target = &n.SyntheticDistributions
		case "StB_E1KV_anzurechnende_ausl_Quellensteuer":
			target = &n.CreditableForeignWH
		case "StB_E1KV_Korrekturbetrag_saldiert":
			target = &n.CostBasisCorrection
		default:
			continue
		}
		value, err := rational.Parse(row.Value)
		if err != nil {
			return fmt.Errorf("field %s: %w", row.Key, err)
		}
		*target = value
	}
	return nil
}

// FetchDetail populates n's per-unit detail fields and FXRate. A no-op if
// already loaded.
func (s *Source) FetchDetail(ctx context.Context, n *ledger.Notification) error {
	if n.DetailLoaded() {
		return nil
	}

	key := fmt.Sprintf("meldung-%d-privatAnl", n.ID)
	body, err := s.cache.Fetch(ctx, key, func(ctx context.Context) (string, error) {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", err
		}
		resp, err := s.client.R().SetContext(ctx).Get(fmt.Sprintf("%s/%d/privatAnl", reportBase, n.ID))
		if err != nil {
			return "", fmt.Errorf("notify: fetching detail for notification %d: %w", n.ID, err)
		}
		if resp.IsError() {
			return "", fmt.Errorf("notify: fetching detail for notification %d: HTTP %d", n.ID, resp.StatusCode())
		}
		return resp.String(), nil
	})
	if err != nil {
		return err
	}

	var parsed rawDetailList
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return fmt.Errorf("notify: parsing detail for notification %d: %w", n.ID, err)
	}
	if err := applyDetail(n, parsed); err != nil {
		return fmt.Errorf("notify: notification %d: %w", n.ID, err)
	}

	fxRate, err := s.fx.Rate(ctx, n.Currency, n.Date)
	if err != nil {
		return fmt.Errorf("notify: resolving %s/EUR rate for notification %d: %w", n.Currency, n.ID, err)
	}
	n.FXRate = fxRate

	n.MarkDetailLoaded()
	return nil
}
