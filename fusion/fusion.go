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

// Package fusion merges one security's raw transaction journal with its
// regulator notification stream into a year-partitioned tax ledger. It is
// the one place that decides, event by event, which statutory calculation
// applies and in which order.
package fusion

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/Swatinem/fondoeh/ledger"
	"github.com/Swatinem/fondoeh/rational"
	"github.com/Swatinem/fondoeh/tax"
)

// notificationLookahead is the window, on either side of a cash
// notification's date, within which a distribution transaction is paired
// with it, to absorb settlement/weekend delay between the two.
const notificationLookahead = 7 * 24 * time.Hour

// NotificationSource resolves a fund's regulator notification stream.
// Detail fields on a Notification are populated lazily via FetchDetail,
// since most notifications in a stream are never paired with a position.
type NotificationSource interface {
	FetchNotifications(ctx context.Context, isin string) (notifications []*ledger.Notification, fundName string, err error)
	FetchDetail(ctx context.Context, n *ledger.Notification) error
}

// QuoteSource resolves exchange metadata and EUR-denominated opening
// quotes, needed for spin-off cost allocation and inbound-share booking.
type QuoteSource interface {
	SearchSecurity(ctx context.Context, query string) (symbol, name string, found bool, err error)
	OpeningPriceEUR(ctx context.Context, symbol string, date time.Time) (rational.Rat, error)
}

// Engine drives the fusion of transactions and notifications for one or
// more securities.
type Engine struct {
	Notifications NotificationSource
	Quotes        QuoteSource
	Today         time.Time
}

// EvaluateSecurity resolves the security's display name/symbol, fetches
// its notification stream if it is a fund, and drives the merge to
// completion, leaving the result in sec.Ledger. sec.Raw is sorted by date
// in place.
func (e *Engine) EvaluateSecurity(ctx context.Context, sec *ledger.Security) error {
	logger := zerolog.Ctx(ctx).With().Str("isin", sec.ISIN).Logger()
	ctx = logger.WithContext(ctx)

	sort.SliceStable(sec.Raw, func(i, j int) bool {
		return sec.Raw[i].Date.Before(sec.Raw[j].Date)
	})

	var notifications []*ledger.Notification
	if sec.Type.IsFund() {
		fetched, name, err := e.Notifications.FetchNotifications(ctx, sec.ISIN)
		if err != nil {
			return fmt.Errorf("fusion: fetching notifications for %s: %w", sec.ISIN, err)
		}
		notifications = fetched
		if name != "" {
			sec.Name = name
		}
		sort.SliceStable(notifications, func(i, j int) bool {
			return notifications[i].Date.Before(notifications[j].Date)
		})
	} else {
		query := sec.Symbol
		if query == "" {
			query = sec.ISIN
		}
		symbol, name, found, err := e.Quotes.SearchSecurity(ctx, query)
		if err != nil {
			return fmt.Errorf("fusion: resolving symbol for %s: %w", sec.ISIN, err)
		}
		if found {
			sec.Symbol = symbol
			sec.Name = name
		}
	}

	d := &driver{
		engine:        e,
		sec:           sec,
		transactions:  sec.Raw,
		notifications: notifications,
		logger:        logger,
	}
	if err := d.run(ctx); err != nil {
		return err
	}

	sec.Ledger.CloseThrough(e.Today.Year())
	return nil
}

// driver holds the mutable cursor state for one security's merge pass.
type driver struct {
	engine        *Engine
	sec           *ledger.Security
	transactions  []ledger.RawTransaction
	notifications []*ledger.Notification

	ti int // next unconsumed transaction index
	ni int // next unconsumed notification index

	pending *ledger.Notification // held for pairing with the next Distribution

	logger zerolog.Logger
}

func (d *driver) peekTransaction() (ledger.RawTransaction, bool) {
	if d.ti >= len(d.transactions) {
		return ledger.RawTransaction{}, false
	}
	return d.transactions[d.ti], true
}

func (d *driver) peekNotification() (*ledger.Notification, bool) {
	if d.ni >= len(d.notifications) {
		return nil, false
	}
	return d.notifications[d.ni], true
}

func (d *driver) run(ctx context.Context) error {
	inv := ledger.Inventory{}

	for {
		if err := d.drainApplicableNotifications(ctx, &inv); err != nil {
			return err
		}

		txn, ok := d.peekTransaction()
		if !ok {
			break
		}
		d.ti++

		event, newInv, err := d.applyTransaction(ctx, txn, inv)
		if err != nil {
			return err
		}
		inv = newInv
		d.sec.Ledger.Append(event)
	}

	return nil
}

// drainApplicableNotifications processes every queued notification that
// precedes the next transaction, per the precedence rule: a notification
// is processed before the next transaction unless that transaction is
// dated strictly before it. For a non-annual notification and a
// Distribution transaction, the Distribution goes first only when it is
// dated more than the lookahead window before the notification; within the
// window it is treated as following its reporting notification.
func (d *driver) drainApplicableNotifications(ctx context.Context, inv *ledger.Inventory) error {
	for {
		n, ok := d.peekNotification()
		if !ok {
			return nil
		}

		txn, hasTxn := d.peekTransaction()
		transactionIsBefore := false
		if hasTxn {
			if !n.IsAnnual && txn.Kind == ledger.Distribution {
				transactionIsBefore = txn.Date.Add(notificationLookahead).Before(n.Date)
			} else {
				transactionIsBefore = txn.Date.Before(n.Date)
			}
		}
		if transactionIsBefore {
			return nil
		}

		if inv.Units.IsZero() {
			// No open position: this notification cannot apply to us.
			d.ni++
			continue
		}

		if err := d.engine.Notifications.FetchDetail(ctx, n); err != nil {
			return fmt.Errorf("fusion: fetching detail for notification %d: %w", n.ID, err)
		}
		n.MarkDetailLoaded()

		if n.IsAnnual {
			newInv, rec := tax.NotificationApply(*inv, n)
			*inv = newInv
			id := n.ID
			d.sec.Ledger.Append(ledger.Event{
				Date:           n.Date,
				InventoryAfter: newInv,
				Kind:           ledger.EventAnnualNotification,
				Tax:            rec,
				NotificationID: &id,
			})
			d.ni++
			continue
		}

		nextIsMatchingDistribution := hasTxn &&
			txn.Kind == ledger.Distribution &&
			!txn.Date.After(n.Date.Add(notificationLookahead))
		if !nextIsMatchingDistribution {
			d.logger.Error().
				Uint32("notification_id", n.ID).
				Time("notification_date", n.Date).
				Msg("notification has no matching distribution transaction")
			return fmt.Errorf("fusion: notification %d for %s has no matching distribution transaction", n.ID, d.sec.ISIN)
		}

		d.pending = n
		d.ni++
		return nil
	}
}

func (d *driver) applyTransaction(ctx context.Context, txn ledger.RawTransaction, inv ledger.Inventory) (ledger.Event, ledger.Inventory, error) {
	date := txn.Date
	event := ledger.Event{
		Date:       date,
		Units:      txn.Units,
		UnitPrice:  txn.UnitPrice,
		Factor:     txn.Factor,
		TargetISIN: txn.TargetISIN,
		Gross:      txn.Gross,
		NetPayout:  txn.NetPayout,
	}

	var newInv ledger.Inventory
	var rec ledger.TaxRecord
	var err error

	switch txn.Kind {
	case ledger.Purchase:
		newInv, rec = tax.Purchase(inv, txn.Units, txn.UnitPrice)
		event.Kind = ledger.EventPurchase

	case ledger.Sale:
		newInv, rec = tax.Sale(inv, txn.Units, txn.UnitPrice)
		event.Kind = ledger.EventSale

	case ledger.FractionalSale:
		newInv, rec = tax.FractionalSale(inv, txn.Units, txn.UnitPrice)
		event.Kind = ledger.EventFractionalSale

	case ledger.Split:
		newInv, rec = tax.Split(inv, txn.Factor)
		event.Kind = ledger.EventSplit

	case ledger.SpinOff:
		newInv, rec, err = d.applySpinOff(ctx, txn, inv)
		event.Kind = ledger.EventSpinOff

	case ledger.Inbound:
		newInv, rec, err = d.applyInbound(ctx, txn, inv)
		event.Kind = ledger.EventInboundFromSpinoff

	case ledger.Dividend:
		if d.sec.Type != ledger.SingleShare {
			err = fmt.Errorf("fusion: dividend transaction on non-share security %s", d.sec.ISIN)
			break
		}
		newInv, rec = tax.Dividend(inv, d.sec.ISIN, txn.Gross, txn.NetPayout)
		event.Kind = ledger.EventDividend

	case ledger.Distribution:
		if !d.sec.Type.IsFund() {
			err = fmt.Errorf("fusion: distribution transaction on non-fund security %s", d.sec.ISIN)
			break
		}
		if d.pending != nil {
			n := d.pending
			d.pending = nil
			// Use the notification's date: the actual payout can be
			// delayed by weekends or settlement.
			date = n.Date
			event.Date = date
			id := n.ID
			event.NotificationID = &id
			newInv, rec = tax.NotificationApply(inv, n)
		} else {
			newInv, rec = tax.DistributionWithoutNotification(inv, txn.NetPayout)
		}
		event.Kind = ledger.EventDistribution

	default:
		err = fmt.Errorf("fusion: unhandled transaction kind %v", txn.Kind)
	}

	if err != nil {
		return ledger.Event{}, ledger.Inventory{}, err
	}

	event.Tax = rec
	event.InventoryAfter = newInv
	return event, newInv, nil
}

func (d *driver) applySpinOff(ctx context.Context, txn ledger.RawTransaction, inv ledger.Inventory) (ledger.Inventory, ledger.TaxRecord, error) {
	if d.sec.Symbol == "" {
		return ledger.Inventory{}, ledger.TaxRecord{}, fmt.Errorf("fusion: %s has no resolved symbol, cannot price spin-off", d.sec.ISIN)
	}
	ownQuote, err := d.engine.Quotes.OpeningPriceEUR(ctx, d.sec.Symbol, txn.Date)
	if err != nil {
		return ledger.Inventory{}, ledger.TaxRecord{}, fmt.Errorf("fusion: pricing %s on %s: %w", d.sec.Symbol, txn.Date.Format("2006-01-02"), err)
	}

	otherSymbol, _, found, err := d.engine.Quotes.SearchSecurity(ctx, txn.TargetISIN)
	if err != nil {
		return ledger.Inventory{}, ledger.TaxRecord{}, fmt.Errorf("fusion: resolving spin-off target %s: %w", txn.TargetISIN, err)
	}
	if !found {
		return ledger.Inventory{}, ledger.TaxRecord{}, fmt.Errorf("fusion: spin-off target %s not found", txn.TargetISIN)
	}
	otherQuote, err := d.engine.Quotes.OpeningPriceEUR(ctx, otherSymbol, txn.Date)
	if err != nil {
		return ledger.Inventory{}, ledger.TaxRecord{}, fmt.Errorf("fusion: pricing spin-off target %s on %s: %w", otherSymbol, txn.Date.Format("2006-01-02"), err)
	}

	newInv, rec := tax.SpinOff(inv, txn.Factor, ownQuote, otherQuote)
	return newInv, rec, nil
}

func (d *driver) applyInbound(ctx context.Context, txn ledger.RawTransaction, inv ledger.Inventory) (ledger.Inventory, ledger.TaxRecord, error) {
	if d.sec.Symbol == "" {
		return ledger.Inventory{}, ledger.TaxRecord{}, fmt.Errorf("fusion: %s has no resolved symbol, cannot price inbound booking", d.sec.ISIN)
	}
	priceEUR, err := d.engine.Quotes.OpeningPriceEUR(ctx, d.sec.Symbol, txn.Date)
	if err != nil {
		return ledger.Inventory{}, ledger.TaxRecord{}, fmt.Errorf("fusion: pricing %s on %s: %w", d.sec.Symbol, txn.Date.Format("2006-01-02"), err)
	}
	newInv, rec := tax.Inbound(inv, txn.Units, priceEUR)
	return newInv, rec, nil
}
