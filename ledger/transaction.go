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

// TransactionKind discriminates the raw transaction union.
// Which of RawTransaction's payload fields are meaningful depends on Kind;
// see the comment on each field.
type TransactionKind int

const (
	Purchase TransactionKind = iota
	Sale
	Split
	SpinOff
	Inbound
	FractionalSale
	Dividend
	Distribution
)

func (k TransactionKind) String() string {
	switch k {
	case Purchase:
		return "Kauf"
	case Sale:
		return "Verkauf"
	case Split:
		return "Split"
	case SpinOff:
		return "Ausgliederung"
	case Inbound:
		return "Einbuchung"
	case FractionalSale:
		return "Spitzenverwertung"
	case Dividend:
		return "Dividende"
	case Distribution:
		return "Ausschüttung"
	default:
		return "unbekannt"
	}
}

// RawTransaction is one entry of a security's input journal.
type RawTransaction struct {
	Date time.Time
	Kind TransactionKind

	Units     rational.Rat // Purchase, Sale, Inbound, FractionalSale
	UnitPrice rational.Rat // Purchase, Sale, FractionalSale

	Factor rational.Rat // Split, SpinOff

	TargetISIN string // SpinOff only

	Gross     rational.Rat // Dividend
	NetPayout rational.Rat // Dividend, Distribution
}

// ValidFor reports whether this transaction kind is legal on a security of
// the given type.
func (k TransactionKind) ValidFor(t SecurityType) bool {
	switch k {
	case Purchase, Sale, Split, FractionalSale:
		return true
	case SpinOff, Inbound, Dividend:
		return t == SingleShare
	case Distribution:
		return t == DistributingFund
	default:
		return false
	}
}
