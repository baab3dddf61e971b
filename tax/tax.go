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

// Package tax is a library of pure total functions, one per economic
// event, each mapping (inventory, event parameters) to (inventory', tax
// record). No I/O, no global state, deterministic.
package tax

import (
	"github.com/Swatinem/fondoeh/ledger"
	"github.com/Swatinem/fondoeh/rational"
)

// ForeignWithholdingCapRate is Austria's treaty rate for dividend
// withholding credit.
var ForeignWithholdingCapRate = rational.New(15, 100)

// ResidualTaxRate is the flat KESt rate applied in the residual-tax formula
//.
var ResidualTaxRate = rational.New(275, 1000)

// Round2 rounds to 2 fractional decimals, the publication precision for
// all tax amounts.
func Round2(z rational.Rat) rational.Rat { return z.Round(2) }

// Round4 rounds to 4 fractional decimals, the publication precision for
// prices.
func Round4(z rational.Rat) rational.Rat { return z.Round(4) }

// Purchase implements §27a (4) 3.: the moving-average cost basis is
// recomputed over the combined position on every purchase.
func Purchase(inv ledger.Inventory, units, price rational.Rat) (ledger.Inventory, ledger.TaxRecord) {
	newUnits := rational.Add(inv.Units, units)
	cost := rational.Add(inv.Value(), rational.Mul(units, price))
	newAvg := Round4(rational.Quo(cost, newUnits))

	return ledger.Inventory{Units: newUnits, AvgCost: newAvg}, ledger.TaxRecord{Kind: ledger.TaxNone}
}

// Inbound treats the receiving side of a spin-off as a Purchase at the
// target security's own EUR spot quote. The caller is responsible for tagging the resulting event as
// EventInboundFromSpinoff rather than EventPurchase.
func Inbound(inv ledger.Inventory, units, priceEUR rational.Rat) (ledger.Inventory, ledger.TaxRecord) {
	return Purchase(inv, units, priceEUR)
}

// Sale implements §27a (3) 2.: gains/losses are the difference between
// proceeds and the moving-average cost basis of the units sold.
func Sale(inv ledger.Inventory, units, price rational.Rat) (ledger.Inventory, ledger.TaxRecord) {
	basis := rational.Mul(units, inv.AvgCost)
	proceeds := rational.Mul(units, price)

	newInv := ledger.Inventory{
		Units:   rational.Sub(inv.Units, units),
		AvgCost: inv.AvgCost,
	}
	newInv = newInv.Normalized()

	rec := ledger.TaxRecord{Kind: ledger.TaxSale}
	if rational.Cmp(proceeds, basis) > 0 {
		rec.Gains994 = Round2(rational.Sub(proceeds, basis))
	} else {
		rec.Losses892 = Round2(rational.Sub(basis, proceeds))
	}
	return newInv, rec
}

// FractionalSale is identical math to Sale; the caller tags the resulting
// event distinctly (EventFractionalSale).
func FractionalSale(inv ledger.Inventory, units, price rational.Rat) (ledger.Inventory, ledger.TaxRecord) {
	return Sale(inv, units, price)
}

// Split implements §6 (1): units scale by factor, average cost scales
// inversely. factor may be fractional (reverse split).
func Split(inv ledger.Inventory, factor rational.Rat) (ledger.Inventory, ledger.TaxRecord) {
	newUnits := rational.Mul(inv.Units, factor)
	newAvg := Round4(rational.Quo(inv.AvgCost, factor))
	return ledger.Inventory{Units: newUnits, AvgCost: newAvg}, ledger.TaxRecord{Kind: ledger.TaxNone}
}

// SpinOff implements §4 (2): the own security keeps its units, but its
// average cost is reallocated by the relative EUR value of the retained
// position versus the newly distributed one. The complementary cost basis
// is NOT materialized here; see Inbound on the target security.
func SpinOff(inv ledger.Inventory, factor, ownQuoteEUR, otherQuoteEUR rational.Rat) (ledger.Inventory, ledger.TaxRecord) {
	ownValue := rational.Mul(inv.Units, ownQuoteEUR)
	otherValue := rational.Mul(rational.Mul(inv.Units, factor), otherQuoteEUR)

	total := rational.Add(ownValue, otherValue)
	shareOwn := rational.Quo(ownValue, total)

	newInv := ledger.Inventory{
		Units:   inv.Units,
		AvgCost: Round4(rational.Mul(inv.AvgCost, shareOwn)),
	}
	return newInv, ledger.TaxRecord{Kind: ledger.TaxNone}
}

// Dividend implements the single-share dividend split between domestic
// withholding (line 899, AT-issued shares) and creditable foreign
// withholding capped at ForeignWithholdingCapRate (line 998, all other
// shares). Inventory is unaffected.
func Dividend(inv ledger.Inventory, isin string, gross, netPayout rational.Rat) (ledger.Inventory, ledger.TaxRecord) {
	rec := ledger.TaxRecord{Kind: ledger.TaxDividend, Income863: gross}
	withheld := rational.Sub(gross, netPayout)

	if ledger.IsAustrian(isin) {
		rec.DomesticTaxPaid899 = withheld
	} else {
		cap := rational.Mul(gross, ForeignWithholdingCapRate)
		rec.CreditableForeignWH998 = Round2(rational.Min(cap, withheld))
	}
	return inv, rec
}

// DistributionWithoutNotification implements the distributing-fund payout
// with no paired notification: the full net payout becomes line 898, no
// basis adjustment.
func DistributionWithoutNotification(inv ledger.Inventory, netPayout rational.Rat) (ledger.Inventory, ledger.TaxRecord) {
	rec := ledger.TaxRecord{Kind: ledger.TaxDistribution, Distributions898: netPayout}
	return inv, rec
}

// NotificationApply implements the common per-notification calculation
// shared by the cash-distribution-with-notification path and the annual
// notification path. Inventory units
// are unchanged; average cost is corrected by the notification's
// cost-basis-correction field.
func NotificationApply(inv ledger.Inventory, n *ledger.Notification) (ledger.Inventory, ledger.TaxRecord) {
	perUnit := rational.Quo(inv.Units, n.FXRate)

	rec := ledger.TaxRecord{
		Kind:                      ledger.TaxDistribution,
		Distributions898:          Round2(rational.Mul(n.Distributions, perUnit)),
		SyntheticDistributions937: Round2(rational.Mul(n.SyntheticDistributions, perUnit)),
		CreditableForeignWH998:    Round2(rational.Mul(n.CreditableForeignWH, perUnit)),
	}

	correction := Round4(rational.Quo(n.CostBasisCorrection, n.FXRate))
	newInv := ledger.Inventory{
		Units:   inv.Units,
		AvgCost: rational.Add(inv.AvgCost, correction),
	}
	return newInv, rec
}

// Synthetic9010 implements the 90/10 rule of §186 (2) 3. InvFG for
// accumulating-fund synthetic distributions. Returns the basis correction
// per unit, already rounded with Round4 (the one labeled rounding point for
// this quantity), and the tax record.
func Synthetic9010(units, valueStart, valueEnd rational.Rat) (deltaAvgCost rational.Rat, rec ledger.TaxRecord) {
	diff := rational.Sub(valueEnd, valueStart)
	nineTenths := rational.Mul(diff, rational.New(90, 100))
	tenPercentOfEnd := rational.Mul(valueEnd, rational.New(10, 100))

	synthetic := rational.Max(nineTenths, tenPercentOfEnd)

	rec = ledger.TaxRecord{
		Kind:                      ledger.TaxDistribution,
		SyntheticDistributions937: synthetic,
	}
	deltaAvgCost = Round4(rational.Quo(synthetic, units))
	return deltaAvgCost, rec
}
