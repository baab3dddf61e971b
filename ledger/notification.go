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

// Notification is one OeKB reporting-agent statement for a fund. Detail
// fields (everything from Distributions onward) are only populated on
// demand, once the fusion engine has decided the notification is
// applicable.
type Notification struct {
	ID         uint32
	Date       time.Time
	IsAnnual   bool
	Currency   string

	detailLoaded bool

	// Per-unit-in-native-currency detail fields, populated by a
	// notification source's FetchDetail.
	Distributions          rational.Rat
	SyntheticDistributions rational.Rat
	CreditableForeignWH    rational.Rat
	CostBasisCorrection    rational.Rat

	// FXRate is the ECB reference rate on Date, expressed as
	// currency-units per EUR, filled in alongside the detail fetch
	// (tax.NotificationApply divides native-currency totals by it).
	FXRate rational.Rat
}

// DetailLoaded reports whether FetchDetail has already populated this
// notification, so a repeated fetch is a correctly-idempotent no-op.
func (n *Notification) DetailLoaded() bool {
	return n.detailLoaded
}

// MarkDetailLoaded records that detail fields are now populated.
func (n *Notification) MarkDetailLoaded() {
	n.detailLoaded = true
}
