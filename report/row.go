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

// Package report renders a processed security's year ledger: a
// tab-separated detail export (one row per event, struct-tag driven) and a
// human-readable report with a per-year statutory summary.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/Swatinem/fondoeh/ledger"
)

// Row is one flattened event, suitable for the detail export. Fields not
// meaningful for a given Aktion stay blank, mirroring the original's
// hand-written TSV layout.
type Row struct {
	Name               string `csv:"Name"`
	ISIN               string `csv:"ISIN"`
	Art                string `csv:"Art"`
	Datum              string `csv:"Datum"`
	Bestand            string `csv:"Bestand"`
	Durchschnittspreis string `csv:"Durchschnittspreis"`

	Aktion     string `csv:"Aktion"`
	Stück      string `csv:"Stück"`
	Preis      string `csv:"Preis"`
	Brutto     string `csv:"Brutto"`
	Auszahlung string `csv:"Auszahlung"`
	MeldeID    string `csv:"Melde-ID"`

	Ueberschuss994 string `csv:"Überschuss (994)"`
	Verlust892     string `csv:"Verlust (892)"`

	Dividendenertrag863          string `csv:"Dividendenertrag (863)"`
	GezahlteKeSt899              string `csv:"Gezahlte KeSt (899)"`
	AnrechenbareQuellensteuer998 string `csv:"Anrechenbare Quellensteuer (998)"`

	Ausschuettung898            string `csv:"Ausschüttung (898)"`
	AusschuettungsglErtrag937   string `csv:"Ausschüttungsgl Ertrag (937)"`
}

// Rows flattens every year of sec.Ledger into detail rows, restricted to
// year if non-nil; each year's rows open and close with a "Bestand" row
// (mirroring schreibe_tsv's leading and trailing inventory snapshots).
func Rows(sec *ledger.Security, year *int) []Row {
	var rows []Row

	for _, y := range sec.Ledger.Years {
		if year != nil && y.Year != *year {
			continue
		}

		rows = append(rows, inventoryRow(sec, y.FirstDate(), y.InventoryAtStart))

		for _, e := range y.Events {
			rows = append(rows, eventRow(sec, e))
		}

		rows = append(rows, inventoryRow(sec, y.LastDate(), y.InventoryAtEnd))
	}

	return rows
}

func inventoryRow(sec *ledger.Security, date time.Time, inv ledger.Inventory) Row {
	r := header(sec, date, inv)
	r.Aktion = "Bestand"
	return r
}

func header(sec *ledger.Security, date time.Time, inv ledger.Inventory) Row {
	return Row{
		Name:               sec.Name,
		ISIN:               sec.ISIN,
		Art:                sec.Type.String(),
		Datum:              date.Format("2006-01-02"),
		Bestand:            inv.Units.Decimal(4),
		Durchschnittspreis: inv.AvgCost.Decimal(4),
	}
}

func eventRow(sec *ledger.Security, e ledger.Event) Row {
	r := header(sec, e.Date, e.InventoryAfter)

	switch e.Kind {
	case ledger.EventPurchase:
		r.Aktion, r.Stück, r.Preis = "Kauf", e.Units.Decimal(4), e.UnitPrice.Decimal(4)
	case ledger.EventSale:
		r.Aktion, r.Stück, r.Preis = "Verkauf", e.Units.Decimal(4), e.UnitPrice.Decimal(4)
	case ledger.EventSplit:
		r.Aktion, r.Stück = "Split", e.Factor.Decimal(4)
	case ledger.EventSpinOff:
		r.Aktion = "Ausgliederung von " + e.TargetISIN + " mit Faktor " + e.Factor.Decimal(4)
	case ledger.EventInboundFromSpinoff:
		r.Aktion, r.Stück, r.Preis = "Einbuchung nach Ausgliederung", e.Units.Decimal(4), e.UnitPrice.Decimal(4)
	case ledger.EventFractionalSale:
		r.Aktion, r.Stück, r.Preis = "Spitzenverwertung", e.Units.Decimal(4), e.UnitPrice.Decimal(4)
	case ledger.EventDividend:
		r.Aktion, r.Brutto, r.Auszahlung = "Dividende", e.Gross.Decimal(2), e.NetPayout.Decimal(2)
	case ledger.EventDistribution:
		if e.NotificationID != nil {
			r.Aktion = "Ausschüttung mit Meldung"
			r.MeldeID = formatMeldeID(*e.NotificationID)
		} else {
			r.Aktion = "Ausschüttung ohne Meldung"
		}
		r.Auszahlung = e.NetPayout.Decimal(2)
	case ledger.EventAnnualNotification:
		r.Aktion = "Jahresmeldung"
		if e.NotificationID != nil {
			r.MeldeID = formatMeldeID(*e.NotificationID)
		}
	}

	applyTax(&r, e.Tax)
	return r
}

func applyTax(r *Row, tax ledger.TaxRecord) {
	switch tax.Kind {
	case ledger.TaxSale:
		r.Ueberschuss994 = tax.Gains994.Decimal(2)
		r.Verlust892 = tax.Losses892.Decimal(2)
	case ledger.TaxDividend:
		r.Dividendenertrag863 = tax.Income863.Decimal(2)
		r.GezahlteKeSt899 = tax.DomesticTaxPaid899.Decimal(2)
		r.AnrechenbareQuellensteuer998 = tax.CreditableForeignWH998.Decimal(2)
	case ledger.TaxDistribution:
		r.Ausschuettung898 = tax.Distributions898.Decimal(2)
		r.AusschuettungsglErtrag937 = tax.SyntheticDistributions937.Decimal(2)
		r.AnrechenbareQuellensteuer998 = tax.CreditableForeignWH998.Decimal(2)
	}
}

// WriteTSV writes the detail export for every security, sorted the same
// way the human report is (type, then name), tab-separated via gocsv.
func WriteTSV(w io.Writer, securities []*ledger.Security, year *int) error {
	ordered := Sorted(securities)

	var all []Row
	for _, sec := range ordered {
		all = append(all, Rows(sec, year)...)
	}

	writer := gocsv.NewSafeCSVWriter(tabWriter(w))
	return gocsv.MarshalCSV(all, writer)
}

func tabWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	return cw
}

// Sorted returns securities ordered by (type, name): single shares, then
// distributing funds, then accumulating funds, alphabetically within each
// group.
func Sorted(securities []*ledger.Security) []*ledger.Security {
	ordered := make([]*ledger.Security, len(securities))
	copy(ordered, securities)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Type != ordered[j].Type {
			return ordered[i].Type < ordered[j].Type
		}
		return ordered[i].Name < ordered[j].Name
	})
	return ordered
}

func formatMeldeID(id uint32) string {
	return fmt.Sprintf("%d", id)
}
