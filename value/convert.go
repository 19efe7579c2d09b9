// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// This file implements convert_to (spec §4.1): identity on the same type,
// numeric widening/narrowing between Int/Float/Double, any value to String
// via canonical to_string, and String to Int via decimal parse. Every other
// pairing fails with ErrTypeConversion.
package value

import (
	"fmt"
	"strconv"

	"github.com/syloe1/kv-db-sub001/kvdberr"
)

// ConvertTo converts v to the target type, per spec §4.1.
func ConvertTo(v TypedValue, target Type) (TypedValue, error) {
	if v.Tag == target {
		return v, nil
	}

	if target == TypeString {
		return String(ToString(v)), nil
	}

	switch v.Tag {
	case TypeInt:
		switch target {
		case TypeFloat:
			return Float(float32(v.Int)), nil
		case TypeDouble:
			return Double(float64(v.Int)), nil
		}
	case TypeFloat:
		switch target {
		case TypeInt:
			return Int(int64(v.Float)), nil
		case TypeDouble:
			return Double(float64(v.Float)), nil
		}
	case TypeDouble:
		switch target {
		case TypeInt:
			return Int(int64(v.Double)), nil
		case TypeFloat:
			return Float(float32(v.Double)), nil
		}
	case TypeString:
		if target == TypeInt {
			n, err := strconv.ParseInt(v.Str, 10, 64)
			if err != nil {
				return TypedValue{}, fmt.Errorf("%w: %q is not a decimal integer", kvdberr.ErrTypeConversion, v.Str)
			}
			return Int(n), nil
		}
	}

	return TypedValue{}, fmt.Errorf("%w: %s -> %s", kvdberr.ErrTypeConversion, v.Tag, target)
}

// ToString renders v's canonical string form, used both by ConvertTo(String)
// and anywhere a human-readable representation is needed (logs, composite
// index keys).
func ToString(v TypedValue) string {
	switch v.Tag {
	case TypeNull:
		return ""
	case TypeInt:
		return strconv.FormatInt(v.Int, 10)
	case TypeFloat:
		return strconv.FormatFloat(float64(v.Float), 'g', -1, 32)
	case TypeDouble:
		return strconv.FormatFloat(v.Double, 'g', -1, 64)
	case TypeString:
		return v.Str
	case TypeTimestamp:
		return strconv.FormatInt(v.Ts, 10)
	case TypeDate:
		return v.D.String()
	case TypeBlob:
		return fmt.Sprintf("blob(%d bytes)", len(v.Blob))
	case TypeList:
		return fmt.Sprintf("list(%d)", len(v.List))
	case TypeSet:
		return fmt.Sprintf("set(%d)", len(v.Set))
	case TypeMap:
		return fmt.Sprintf("map(%d)", len(v.Map))
	default:
		return ""
	}
}
