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

import (
	"time"

	"github.com/Swatinem/fondoeh/rational"
)

// EventKind discriminates the output event union: it mirrors
// TransactionKind but retags Inbound as InboundFromSpinoff and adds
// AnnualNotification, which has no raw-transaction counterpart.
type EventKind int

const (
	EventPurchase EventKind = iota
	EventSale
	EventSplit
	EventSpinOff
	EventInboundFromSpinoff
	EventFractionalSale
	EventDividend
	EventDistribution
	EventAnnualNotification
)

func (k EventKind) String() string {
	switch k {
	case EventPurchase:
		return "Kauf"
	case EventSale:
		return "Verkauf"
	case EventSplit:
		return "Split"
	case EventSpinOff:
		return "Ausgliederung"
	case EventInboundFromSpinoff:
		return "Einbuchung nach Ausgliederung"
	case EventFractionalSale:
		return "Spitzenverwertung"
	case EventDividend:
		return "Dividende"
	case EventDistribution:
		return "Ausschüttung"
	case EventAnnualNotification:
		return "Jahresmeldung"
	default:
		return "unbekannt"
	}
}

// TaxRecordKind discriminates the tax-record union.
type TaxRecordKind int

const (
	TaxNone TaxRecordKind = iota
	TaxSale
	TaxDividend
	TaxDistribution
)

// TaxRecord carries the Austrian tax-form line items produced by one event.
// Which fields are meaningful depends on Kind; unused fields stay at their
// zero value so summing across events (ledger.Year.TaxTotals) is always
// correct regardless of Kind.
type TaxRecord struct {
	Kind TaxRecordKind

	// TaxSale
	Gains994  rational.Rat
	Losses892 rational.Rat

	// TaxDividend
	Income863              rational.Rat
	DomesticTaxPaid899     rational.Rat
	CreditableForeignWH998 rational.Rat

	// TaxDistribution
	Distributions898          rational.Rat
	SyntheticDistributions937 rational.Rat
	// CreditableForeignWH998 is shared between Dividend and Distribution.
}

// Add accumulates other into z (used by Year.TaxTotals).
func (z *TaxRecord) Add(other TaxRecord) {
	z.Gains994 = rational.Add(z.Gains994, other.Gains994)
	z.Losses892 = rational.Add(z.Losses892, other.Losses892)
	z.Income863 = rational.Add(z.Income863, other.Income863)
	z.DomesticTaxPaid899 = rational.Add(z.DomesticTaxPaid899, other.DomesticTaxPaid899)
	z.CreditableForeignWH998 = rational.Add(z.CreditableForeignWH998, other.CreditableForeignWH998)
	z.Distributions898 = rational.Add(z.Distributions898, other.Distributions898)
	z.SyntheticDistributions937 = rational.Add(z.SyntheticDistributions937, other.SyntheticDistributions937)
}

// ResidualTax computes 0.275*(994-892+863+898+937) - 899 - 998, the
// statutory residual-tax formula for a year.
func (z TaxRecord) ResidualTax() rational.Rat {
	taxable := rational.Add(
		rational.Sub(z.Gains994, z.Losses892),
		rational.Add(z.Income863, rational.Add(z.Distributions898, z.SyntheticDistributions937)),
	)
	rate := rational.New(275, 1000)
	tax := rational.Mul(taxable, rate)
	return rational.Sub(tax, rational.Add(z.DomesticTaxPaid899, z.CreditableForeignWH998))
}

// Event is one entry of a security's year ledger: a date, the inventory
// immediately after the event, the event's tag, and its tax record.
type Event struct {
	Date           time.Time
	InventoryAfter Inventory
	Kind           EventKind
	Tax            TaxRecord

	// Event-specific economically relevant scalars, zero valued when not
	// applicable to Kind.
	Units      rational.Rat
	UnitPrice  rational.Rat
	Factor     rational.Rat
	TargetISIN string
	Gross      rational.Rat
	NetPayout  rational.Rat

	// NotificationID is set on Distribution events paired with a
	// notification, and on the AnnualNotification events the fusion engine
	// emits. Nil otherwise, including on the synthetic AnnualNotification
	// events the accumulating-fund pass adds.
	NotificationID *uint32
}
