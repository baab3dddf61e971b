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
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Swatinem/fondoeh/ledger"
	"github.com/Swatinem/fondoeh/rational"
)

func TestFormatEuro_UsesCommaDecimalSeparator(t *testing.T) {
	s := formatEuro(rational.New(12345, 10))
	if !strings.Contains(s, ",50") {
		t.Errorf("formatEuro = %q, want a comma decimal separator", s)
	}
}

func TestEventTableRow_SpinOffNamesTargetISIN(t *testing.T) {
	e := ledger.Event{
		Kind:       ledger.EventSpinOff,
		TargetISIN: "US0000000002",
	}
	row := eventTableRow(e)
	if !strings.Contains(row[1], "US0000000002") {
		t.Errorf("action column = %q, want it to mention the target ISIN", row[1])
	}
}

func TestWriteHuman_RendersTitleAndYearBlocks(t *testing.T) {
	sec := sampleSecurity()
	var buf bytes.Buffer
	if err := WriteHuman(&buf, []*ledger.Security{sec}, nil, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("WriteHuman: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Beispiel AG") {
		t.Errorf("output missing security name: %q", out)
	}
	if !strings.Contains(out, "2022") {
		t.Errorf("output missing year block: %q", out)
	}
}
