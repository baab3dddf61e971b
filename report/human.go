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
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/xeonx/timeago"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Swatinem/fondoeh/ledger"
	"github.com/Swatinem/fondoeh/rational"
)

var printer = message.NewPrinter(language.MustParse("de-AT"))

// WriteHuman renders a readable report to w: a title block per security,
// a table per year, and — when year is given — a closing statutory
// summary across every security for that year.
func WriteHuman(w io.Writer, securities []*ledger.Security, year *int, today time.Time) error {
	for _, sec := range Sorted(securities) {
		writeTitle(w, sec)

		for _, y := range sec.Ledger.Years {
			if year != nil && y.Year != *year {
				continue
			}
			writeYear(w, sec, y, today)
		}
	}

	if year != nil {
		writeSummary(w, securities, *year)
	}

	return nil
}

func writeTitle(w io.Writer, sec *ledger.Security) {
	fmt.Fprintf(w, "%s (%s)\n", sec.Name, sec.Type)
	fmt.Fprintf(w, "ISIN: %s", sec.ISIN)
	if sec.Symbol != "" {
		fmt.Fprintf(w, "    Symbol: %s", sec.Symbol)
	}
	fmt.Fprintln(w)
	underline(w, len(sec.Name)+len(sec.Type.String())+3)
}

func underline(w io.Writer, n int) {
	for i := 0; i < n; i++ {
		fmt.Fprint(w, "=")
	}
	fmt.Fprintln(w)
}

func writeYear(w io.Writer, sec *ledger.Security, y ledger.Year, today time.Time) {
	fmt.Fprintf(w, "\n%d\n", y.Year)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Datum", "Aktion", "Stück", "Preis", "Betrag", "Bestand", "Ø-Preis"})
	table.SetAutoWrapText(false)

	table.Append([]string{
		y.InventoryAtStart.Units.Decimal(4) + " Stück am Jahresanfang",
		"", "", "", "", "", "",
	})

	for _, e := range y.Events {
		table.Append(eventTableRow(e))
	}

	table.Render()

	closing := y.InventoryAtEnd
	fmt.Fprintf(w, "Bestand am %s: %s Stück, Wert %s (%s)\n",
		y.LastDate().Format("2006-01-02"),
		closing.Units.Decimal(4),
		formatEuro(closing.Value()),
		timeago.German.FormatReference(y.LastDate(), today),
	)
}

func eventTableRow(e ledger.Event) []string {
	units, price, amount := "", "", ""

	switch e.Kind {
	case ledger.EventPurchase, ledger.EventSale, ledger.EventInboundFromSpinoff, ledger.EventFractionalSale:
		units = e.Units.Decimal(4)
		price = formatEuro(e.UnitPrice)
	case ledger.EventSplit, ledger.EventSpinOff:
		units = e.Factor.Decimal(4)
	case ledger.EventDividend, ledger.EventDistribution:
		amount = formatEuro(e.NetPayout)
	}

	action := e.Kind.String()
	if e.Kind == ledger.EventSpinOff {
		action = fmt.Sprintf("Ausgliederung von %s", e.TargetISIN)
	}
	if e.NotificationID != nil {
		action = fmt.Sprintf("%s (Meldung %d)", action, *e.NotificationID)
	}

	return []string{
		e.Date.Format("2006-01-02"),
		action,
		units,
		price,
		amount,
		e.InventoryAfter.Units.Decimal(4),
		e.InventoryAfter.AvgCost.Decimal(4),
	}
}

func writeSummary(w io.Writer, securities []*ledger.Security, year int) {
	var total ledger.TaxRecord
	for _, sec := range securities {
		y, ok := sec.Ledger.Year(year)
		if !ok {
			continue
		}
		total.Add(y.TaxTotals())
	}

	fmt.Fprintf(w, "\nSteuerliche Eckdaten %d\n", year)
	underline(w, 20)

	summary := tablewriter.NewWriter(w)
	summary.SetHeader([]string{"Kennzahl", "Betrag"})
	summary.Append([]string{"Überschuss (994)", formatEuro(total.Gains994)})
	summary.Append([]string{"Verlust (892)", formatEuro(total.Losses892)})
	summary.Append([]string{"Dividendenertrag (863)", formatEuro(total.Income863)})
	summary.Append([]string{"Gezahlte KeSt (899)", formatEuro(total.DomesticTaxPaid899)})
	summary.Append([]string{"Anrechenbare Quellensteuer (998)", formatEuro(total.CreditableForeignWH998)})
	summary.Append([]string{"Ausschüttung (898)", formatEuro(total.Distributions898)})
	summary.Append([]string{"Ausschüttungsgleicher Ertrag (937)", formatEuro(total.SyntheticDistributions937)})
	summary.Append([]string{"Restliche KeSt", formatEuro(total.ResidualTax())})
	summary.Render()
}

// formatEuro renders a euro amount the locale-appropriate way (comma
// decimal separator, period thousands grouping); humanize.Commaf backs
// the rare case of an amount too large for x/text's float formatting to
// group sensibly.
func formatEuro(amount rational.Rat) string {
	f := amount.Float64()
	if f > 1e15 || f < -1e15 {
		return humanize.Commaf(f) + " €"
	}
	return printer.Sprintf("%.2f €", f)
}
