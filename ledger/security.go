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

// Package ledger holds the data model of the tax engine: securities,
// inventories, the raw-transaction and event tagged unions, and the
// year-partitioned ledger a fusion engine run produces.
package ledger

import (
	"fmt"
	"strings"
)

// SecurityType classifies a security for the purposes of which raw
// transaction kinds are legal and whether a notification stream and/or
// quote source applies.
type SecurityType int

const (
	SingleShare SecurityType = iota
	DistributingFund
	AccumulatingFund
)

func (t SecurityType) String() string {
	switch t {
	case SingleShare:
		return "Aktie"
	case DistributingFund:
		return "ausschüttender Fonds"
	case AccumulatingFund:
		return "thesaurierender Fonds"
	default:
		return "unbekannt"
	}
}

// IsFund reports whether the security carries a notification stream.
func (t SecurityType) IsFund() bool {
	return t == DistributingFund || t == AccumulatingFund
}

// ParseSecurityType maps a journal's `typ` field (aktie, etf, fond) to a
// SecurityType.
func ParseSecurityType(s string) (SecurityType, error) {
	switch s {
	case "aktie":
		return SingleShare, nil
	case "etf":
		return DistributingFund, nil
	case "fond":
		return AccumulatingFund, nil
	default:
		return 0, fmt.Errorf("ledger: unknown security type %q (want aktie, etf, or fond)", s)
	}
}

// Security identifies one ISIN and, after processing, carries its
// year-partitioned ledger.
type Security struct {
	ISIN   string
	Type   SecurityType
	Name   string
	Symbol string // resolved lazily for single shares and accumulating funds

	Raw []RawTransaction // input

	Ledger YearLedger // output, set once by the Fusion Engine
}

// IsAustrian reports whether the ISIN carries the "AT" country prefix,
// which selects the domestic-withholding branch of tax.Dividend.
func IsAustrian(isin string) bool {
	return strings.HasPrefix(isin, "AT")
}
