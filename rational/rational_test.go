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
package rational_test

import (
	"testing"

	"github.com/Swatinem/fondoeh/rational"
)

func TestParseDecimal(t *testing.T) {
	cases := []struct {
		in   string
		want rational.Rat
	}{
		{"30.23", rational.New(3023, 100)},
		{"-1.5", rational.New(-15, 10)},
		{"40", rational.FromInt(40)},
		{"0.275", rational.New(275, 1000)},
	}
	for _, c := range cases {
		got, err := rational.Parse(c.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c.in, err)
		}
		if rational.Cmp(got, c.want) != 0 {
			t.Errorf("Parse(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseFraction(t *testing.T) {
	got, err := rational.Parse("1/10")
	if err != nil {
		t.Fatal(err)
	}
	want := rational.New(1, 10)
	if rational.Cmp(got, want) != 0 {
		t.Errorf("Parse(1/10) = %v, want %v", got, want)
	}
}

func TestRoundHalfAwayFromZeroCommutesWithSign(t *testing.T) {
	x := rational.New(125, 100) // 1.25
	pos := x.Round(1)
	neg := rational.Neg(x).Round(1)
	if rational.Cmp(neg, rational.Neg(pos)) != 0 {
		t.Errorf("rounding does not commute with sign: round(1.25)=%v round(-1.25)=%v", pos, neg)
	}
	// 1.25 rounded to 1 decimal, ties away from zero -> 1.3
	if rational.Cmp(pos, rational.New(13, 10)) != 0 {
		t.Errorf("round(1.25, 1) = %v, want 1.3", pos)
	}
}

func TestArithmeticStaysExactBeforeRounding(t *testing.T) {
	x := rational.New(1, 3)
	// sum of thirds should stay exact pre-rounding
	sum := rational.Add(rational.Add(x, x), x)
	if rational.Cmp(sum, rational.FromInt(1)) != 0 {
		t.Errorf("1/3+1/3+1/3 = %v, want 1", sum)
	}
}

func TestSplitThenInverseSplitIsExact(t *testing.T) {
	// Split by f then by 1/f must restore the original value exactly,
	// with no rounding in between.
	f := rational.New(1, 3)
	invF := rational.Quo(rational.FromInt(1), f)

	start := rational.New(8571, 1000) // arbitrary average cost
	afterSplit := rational.Quo(start, f)
	afterInverse := rational.Quo(afterSplit, invF)

	if rational.Cmp(afterInverse, start) != 0 {
		t.Errorf("split round-trip not exact: got %v, want %v", afterInverse, start)
	}
}

func TestQuantizeFloat(t *testing.T) {
	got := rational.QuantizeFloat(30.2345)
	want := rational.New(302345, 10000)
	if rational.Cmp(got, want) != 0 {
		t.Errorf("QuantizeFloat(30.2345) = %v, want %v", got, want)
	}
}
