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

import "github.com/Swatinem/fondoeh/rational"

// Inventory ("Bestand") is the running (units, moving-average-unit-cost)
// pair. Invariants: Units >= 0; if Units == 0 then AvgCost == 0.
type Inventory struct {
	Units   rational.Rat
	AvgCost rational.Rat
}

// Value returns Units * AvgCost.
func (b Inventory) Value() rational.Rat {
	return rational.Mul(b.Units, b.AvgCost)
}

// Normalized returns b with AvgCost forced to zero if Units is zero, as
// required whenever a sale empties the position.
func (b Inventory) Normalized() Inventory {
	if b.Units.IsZero() {
		return Inventory{Units: b.Units}
	}
	return b
}
