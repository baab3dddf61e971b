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
package journal

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Swatinem/fondoeh/ledger"
	"github.com/Swatinem/fondoeh/rational"
)

// transactionYAML decodes one entry of a `transaktionen` list: a mapping of
// exactly one key (the German transaction name) to a positional sequence of
// fields, e.g. `kauf: [2023-01-01, 40, 30.023]`.
type transactionYAML struct {
	RawTransaction ledger.RawTransaction
}

var wireKinds = map[string]ledger.TransactionKind{
	"kauf":              ledger.Purchase,
	"verkauf":           ledger.Sale,
	"split":             ledger.Split,
	"ausgliederung":     ledger.SpinOff,
	"einbuchung":        ledger.Inbound,
	"spitzenverwertung": ledger.FractionalSale,
	"dividende":         ledger.Dividend,
	"ausschüttung":      ledger.Distribution,
}

func (t *transactionYAML) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode || len(value.Content) != 2 {
		return fmt.Errorf("journal: a transaction entry must be a single-key mapping, got %d keys", len(value.Content)/2)
	}

	var key string
	if err := value.Content[0].Decode(&key); err != nil {
		return fmt.Errorf("journal: decoding transaction key: %w", err)
	}
	kind, ok := wireKinds[key]
	if !ok {
		return fmt.Errorf("journal: unknown transaction kind %q", key)
	}

	fields := value.Content[1]
	if fields.Kind != yaml.SequenceNode {
		return fmt.Errorf("journal: transaction %q must carry a sequence of fields", key)
	}

	date, err := decodeDate(fields, 0, key)
	if err != nil {
		return err
	}
	txn := ledger.RawTransaction{Date: date, Kind: kind}

	switch kind {
	case ledger.Purchase, ledger.Sale, ledger.FractionalSale:
		if txn.Units, err = decodeRat(fields, 1, key); err != nil {
			return err
		}
		if txn.UnitPrice, err = decodeRat(fields, 2, key); err != nil {
			return err
		}
	case ledger.Split:
		if txn.Factor, err = decodeRat(fields, 1, key); err != nil {
			return err
		}
	case ledger.SpinOff:
		if txn.Factor, err = decodeRat(fields, 1, key); err != nil {
			return err
		}
		if txn.TargetISIN, err = decodeString(fields, 2, key); err != nil {
			return err
		}
	case ledger.Inbound:
		if txn.Units, err = decodeRat(fields, 1, key); err != nil {
			return err
		}
	case ledger.Dividend:
		if txn.Gross, err = decodeRat(fields, 1, key); err != nil {
			return err
		}
		if txn.NetPayout, err = decodeRat(fields, 2, key); err != nil {
			return err
		}
	case ledger.Distribution:
		if txn.NetPayout, err = decodeRat(fields, 1, key); err != nil {
			return err
		}
	}

	t.RawTransaction = txn
	return nil
}

func field(fields *yaml.Node, idx int, kind string) (*yaml.Node, error) {
	if idx >= len(fields.Content) {
		return nil, fmt.Errorf("journal: transaction %q is missing field %d", kind, idx)
	}
	return fields.Content[idx], nil
}

func decodeDate(fields *yaml.Node, idx int, kind string) (time.Time, error) {
	n, err := field(fields, idx, kind)
	if err != nil {
		return time.Time{}, err
	}
	var t time.Time
	if err := n.Decode(&t); err != nil {
		return time.Time{}, fmt.Errorf("journal: transaction %q date: %w", kind, err)
	}
	return t, nil
}

func decodeRat(fields *yaml.Node, idx int, kind string) (rational.Rat, error) {
	n, err := field(fields, idx, kind)
	if err != nil {
		return rational.Zero, err
	}
	var r rational.Rat
	if err := n.Decode(&r); err != nil {
		return rational.Zero, fmt.Errorf("journal: transaction %q field %d: %w", kind, idx, err)
	}
	return r, nil
}

func decodeString(fields *yaml.Node, idx int, kind string) (string, error) {
	n, err := field(fields, idx, kind)
	if err != nil {
		return "", err
	}
	var s string
	if err := n.Decode(&s); err != nil {
		return "", fmt.Errorf("journal: transaction %q field %d: %w", kind, idx, err)
	}
	return s, nil
}
