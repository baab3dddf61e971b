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

// Package rational implements the exact-fraction scalar used throughout
// fondoeh for money and unit quantities. Internal arithmetic never rounds;
// rounding only happens at the publication points named in the statutory
// calculations (tax.Round2, tax.Round4).
package rational

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Rat is an exact fraction, sign carried in the numerator, always kept in
// lowest terms by the underlying big.Rat.
type Rat struct {
	r *big.Rat
}

// Zero is the additive identity. The zero value of Rat is usable directly;
// Zero exists for readability at call sites.
var Zero = Rat{}

// FromInt builds an exact integer rational.
func FromInt(n int64) Rat {
	return Rat{r: new(big.Rat).SetInt64(n)}
}

// New builds num/den.
func New(num, den int64) Rat {
	return Rat{r: big.NewRat(num, den)}
}

func (z Rat) bigRat() *big.Rat {
	if z.r == nil {
		return new(big.Rat)
	}
	return z.r
}

// IsZero reports whether the value is exactly 0.
func (z Rat) IsZero() bool {
	return z.bigRat().Sign() == 0
}

// Sign returns -1, 0 or 1.
func (z Rat) Sign() int {
	return z.bigRat().Sign()
}

// Add returns a + b.
func Add(a, b Rat) Rat {
	return Rat{r: new(big.Rat).Add(a.bigRat(), b.bigRat())}
}

// Sub returns a - b.
func Sub(a, b Rat) Rat {
	return Rat{r: new(big.Rat).Sub(a.bigRat(), b.bigRat())}
}

// Mul returns a * b.
func Mul(a, b Rat) Rat {
	return Rat{r: new(big.Rat).Mul(a.bigRat(), b.bigRat())}
}

// Quo returns a / b. Panics if b is zero, same as big.Rat.
func Quo(a, b Rat) Rat {
	return Rat{r: new(big.Rat).Quo(a.bigRat(), b.bigRat())}
}

// Neg returns -a.
func Neg(a Rat) Rat {
	return Rat{r: new(big.Rat).Neg(a.bigRat())}
}

// Cmp compares a to b: -1, 0, 1.
func Cmp(a, b Rat) int {
	return a.bigRat().Cmp(b.bigRat())
}

// Max returns the larger of a and b.
func Max(a, b Rat) Rat {
	if Cmp(a, b) >= 0 {
		return a
	}
	return b
}

// Min returns the smaller of a and b.
func Min(a, b Rat) Rat {
	if Cmp(a, b) <= 0 {
		return a
	}
	return b
}

// Round rounds z to n fractional decimal digits, half-away-from-zero, and
// returns the result still as an exact rational (it is exact: e/10^n for
// some integer e). This is the only place rounding should occur in the
// codebase; callers must not round ad hoc.
func (z Rat) Round(n uint) Rat {
	factor := pow10(n)
	scaled := new(big.Rat).Mul(z.bigRat(), factor)
	rounded := roundHalfAwayFromZero(scaled)
	result := new(big.Rat).Quo(new(big.Rat).SetInt(rounded), factor)
	return Rat{r: result}
}

func pow10(n uint) *big.Rat {
	p := new(big.Int).Exp(big.NewInt(10), new(big.Int).SetUint64(uint64(n)), nil)
	return new(big.Rat).SetInt(p)
}

// roundHalfAwayFromZero rounds an exact rational to the nearest integer,
// ties rounding away from zero (so it commutes with sign: round(-x) ==
// -round(x)).
func roundHalfAwayFromZero(x *big.Rat) *big.Int {
	neg := x.Sign() < 0
	abs := new(big.Rat).Abs(x)

	num := abs.Num()
	den := abs.Denom()

	quo, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	// rem/den >= 1/2  <=>  2*rem >= den
	twiceRem := new(big.Int).Mul(rem, big.NewInt(2))
	if twiceRem.Cmp(den) >= 0 {
		quo.Add(quo, big.NewInt(1))
	}
	if neg {
		quo.Neg(quo)
	}
	return quo
}

// QuantizeFloat converts a float-valued external observation (a quote) to a
// Rat with a fixed denominator of 1/10000, avoiding adoption of binary
// floating point noise into the exact arithmetic core.
func QuantizeFloat(f float64) Rat {
	const denom = 10000
	scaled := f * denom
	rounded := int64(scaled + signOf(scaled)*0.5)
	return New(rounded, denom)
}

func signOf(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}

// Float64 converts to the nearest float64, for display-adjacent code paths
// that need to hand off to a float-based formatting library. Never used in
// the tax/fusion core itself.
func (z Rat) Float64() float64 {
	f, _ := z.bigRat().Float64()
	return f
}

// Parse parses a journal scalar: decimal form ("30.23", "-1.5") or a slash
// fraction ("1/10").
func Parse(s string) (Rat, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, fmt.Errorf("rational: empty value")
	}

	if idx := strings.IndexByte(s, '/'); idx >= 0 {
		numStr, denStr := s[:idx], s[idx+1:]
		num, err := parseDecimal(numStr)
		if err != nil {
			return Zero, fmt.Errorf("rational: parsing numerator of %q: %w", s, err)
		}
		den, err := parseDecimal(denStr)
		if err != nil {
			return Zero, fmt.Errorf("rational: parsing denominator of %q: %w", s, err)
		}
		if den.IsZero() {
			return Zero, fmt.Errorf("rational: division by zero in %q", s)
		}
		return Quo(num, den), nil
	}

	return parseDecimal(s)
}

func parseDecimal(s string) (Rat, error) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	intPart, fracPart, hasFrac := strings.Cut(s, ".")

	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Zero, fmt.Errorf("rational: %q is not a number: %w", s, err)
	}
	result := FromInt(whole)

	if hasFrac && fracPart != "" {
		fracDigits, err := strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return Zero, fmt.Errorf("rational: %q is not a number: %w", s, err)
		}
		factor := pow10(uint(len(fracPart)))
		frac := new(big.Rat).Quo(big.NewRat(fracDigits, 1), factor)
		result = Rat{r: new(big.Rat).Add(result.bigRat(), frac)}
	}

	if neg {
		result = Neg(result)
	}
	return result, nil
}

// String renders the exact fraction ("n" or "n/d"), primarily for debugging
// and TSV export of raw quantities.
func (z Rat) String() string {
	return z.bigRat().RatString()
}

// Decimal renders the value as a fixed-point decimal string with prec
// digits after the point (display only, e.g. for report output; the
// stored value itself is never rounded by this call).
func (z Rat) Decimal(prec int) string {
	return z.bigRat().FloatString(prec)
}

// MarshalYAML/UnmarshalYAML let Rat participate directly in journal decoding.
func (z Rat) MarshalYAML() (interface{}, error) {
	return z.bigRat().FloatString(8), nil
}

// UnmarshalYAML decodes either a YAML scalar number or string using Parse.
func (z *Rat) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*z = parsed
		return nil
	case int:
		*z = FromInt(int64(v))
		return nil
	case float64:
		parsed, err := Parse(strconv.FormatFloat(v, 'f', -1, 64))
		if err != nil {
			return err
		}
		*z = parsed
		return nil
	default:
		return fmt.Errorf("rational: unsupported YAML scalar %T (%v)", raw, raw)
	}
}
