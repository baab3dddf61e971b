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
package fx

import (
	"testing"

	"github.com/Swatinem/fondoeh/rational"
)

func TestParseECBSeries(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<gesmes:Envelope>
  <Cube>
    <Cube TIME_PERIOD="2023-09-01" OBS_VALUE="1.0844" OBS_STATUS="A" OBS_CONF="F"/>
    <Obs TIME_PERIOD="2023-09-01" OBS_VALUE="1.0844" OBS_STATUS="A" OBS_CONF="F"/>
    <Obs TIME_PERIOD="2023-09-04" OBS_VALUE="1.0799" OBS_STATUS="A" OBS_CONF="F"/>
  </Cube>
</gesmes:Envelope>`

	rates := parseECBSeries(doc)
	if len(rates) != 2 {
		t.Fatalf("len(rates) = %d, want 2", len(rates))
	}
	if rational.Cmp(rates["2023-09-04"], rational.New(10799, 10000)) != 0 {
		t.Errorf("rate for 2023-09-04 = %v", rates["2023-09-04"])
	}
}
