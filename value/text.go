// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// This file implements the self-describing text codec (spec §4.1, §6.2): a
// JSON-shaped envelope `{"type": <name>, "value": <value>}`, used for
// debugging, imports, and exports. Blobs are Base64; dates are
// "YYYY-MM-DD"; timestamps are RFC3339 UTC ("YYYY-MM-DDTHH:MM:SSZ").
package value

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/syloe1/kv-db-sub001/kvdberr"
)

type textEnvelope struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// SerializeText encodes v as the self-describing JSON envelope. When pretty
// is true the output is indented for human inspection.
func SerializeText(v TypedValue, pretty bool) ([]byte, error) {
	payload, err := encodeTextValue(v)
	if err != nil {
		return nil, err
	}
	env := textEnvelope{Type: v.Tag.String(), Value: payload}
	if pretty {
		return json.MarshalIndent(env, "", "  ")
	}
	return json.Marshal(env)
}

// DeserializeText decodes the self-describing JSON envelope back into a
// TypedValue. Unknown type names fail with ErrCodec.
func DeserializeText(b []byte) (TypedValue, error) {
	var env textEnvelope
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&env); err != nil {
		return TypedValue{}, fmt.Errorf("%w: %v", kvdberr.ErrCodec, err)
	}
	return decodeTextValue(env.Type, env.Value)
}

func encodeTextValue(v TypedValue) (json.RawMessage, error) {
	switch v.Tag {
	case TypeNull:
		return json.RawMessage("null"), nil
	case TypeInt:
		return json.Marshal(v.Int)
	case TypeFloat:
		return json.Marshal(float64(v.Float))
	case TypeDouble:
		return json.Marshal(v.Double)
	case TypeString:
		return json.Marshal(v.Str)
	case TypeTimestamp:
		t := time.UnixMilli(v.Ts).UTC().Format("2006-01-02T15:04:05Z")
		return json.Marshal(t)
	case TypeDate:
		return json.Marshal(v.D.String())
	case TypeBlob:
		return json.Marshal(base64.StdEncoding.EncodeToString(v.Blob))
	case TypeList, TypeSet:
		items := v.List
		if v.Tag == TypeSet {
			items = v.Set
		}
		envs := make([]textEnvelope, len(items))
		for i, e := range items {
			payload, err := encodeTextValue(e)
			if err != nil {
				return nil, err
			}
			envs[i] = textEnvelope{Type: e.Tag.String(), Value: payload}
		}
		return json.Marshal(envs)
	case TypeMap:
		out := make(map[string]textEnvelope, len(v.Map))
		order := make([]string, 0, len(v.Map))
		for _, e := range v.Map {
			payload, err := encodeTextValue(e.Value)
			if err != nil {
				return nil, err
			}
			out[e.Key] = textEnvelope{Type: e.Value.Tag.String(), Value: payload}
			order = append(order, e.Key)
		}
		// json.Marshal on a map does not preserve order; encode manually so
		// the ordered-mapping invariant (spec §3.1) survives the text codec.
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range order {
			if i != 0 {
				buf.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			buf.Write(kb)
			buf.WriteByte(':')
			vb, _ := json.Marshal(out[k])
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: unknown type tag %d", kvdberr.ErrCodec, v.Tag)
	}
}

func decodeTextValue(typeName string, payload json.RawMessage) (TypedValue, error) {
	switch typeName {
	case "Null":
		return Null(), nil
	case "Int":
		var i int64
		if err := json.Unmarshal(payload, &i); err != nil {
			return TypedValue{}, fmt.Errorf("%w: %v", kvdberr.ErrCodec, err)
		}
		return Int(i), nil
	case "Float":
		var f float64
		if err := json.Unmarshal(payload, &f); err != nil {
			return TypedValue{}, fmt.Errorf("%w: %v", kvdberr.ErrCodec, err)
		}
		return Float(float32(f)), nil
	case "Double":
		var f float64
		if err := json.Unmarshal(payload, &f); err != nil {
			return TypedValue{}, fmt.Errorf("%w: %v", kvdberr.ErrCodec, err)
		}
		return Double(f), nil
	case "String":
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return TypedValue{}, fmt.Errorf("%w: %v", kvdberr.ErrCodec, err)
		}
		return String(s), nil
	case "Timestamp":
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return TypedValue{}, fmt.Errorf("%w: %v", kvdberr.ErrCodec, err)
		}
		t, err := time.Parse("2006-01-02T15:04:05Z", s)
		if err != nil {
			return TypedValue{}, fmt.Errorf("%w: bad timestamp %q: %v", kvdberr.ErrCodec, s, err)
		}
		return Timestamp(t.UnixMilli()), nil
	case "Date":
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return TypedValue{}, fmt.Errorf("%w: %v", kvdberr.ErrCodec, err)
		}
		var y, m, d int
		if _, err := fmt.Sscanf(s, "%04d-%02d-%02d", &y, &m, &d); err != nil {
			return TypedValue{}, fmt.Errorf("%w: bad date %q: %v", kvdberr.ErrCodec, s, err)
		}
		return NewDate(int32(y), int32(m), int32(d)), nil
	case "Blob":
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return TypedValue{}, fmt.Errorf("%w: %v", kvdberr.ErrCodec, err)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return TypedValue{}, fmt.Errorf("%w: bad base64: %v", kvdberr.ErrCodec, err)
		}
		return Blob(b), nil
	case "List", "Set":
		var envs []textEnvelope
		if err := json.Unmarshal(payload, &envs); err != nil {
			return TypedValue{}, fmt.Errorf("%w: %v", kvdberr.ErrCodec, err)
		}
		items := make([]TypedValue, len(envs))
		for i, e := range envs {
			v, err := decodeTextValue(e.Type, e.Value)
			if err != nil {
				return TypedValue{}, err
			}
			items[i] = v
		}
		if typeName == "List" {
			return List(items), nil
		}
		return Set(items), nil
	case "Map":
		raw := map[string]textEnvelope{}
		if err := json.Unmarshal(payload, &raw); err != nil {
			return TypedValue{}, fmt.Errorf("%w: %v", kvdberr.ErrCodec, err)
		}
		// Encoding preserves order with an ordered object literal, but
		// encoding/json into a map loses it; callers round-tripping order
		// should prefer the binary codec. We recover a deterministic
		// (sorted) order here rather than claim an order we cannot observe.
		entries := make([]MapEntry, 0, len(raw))
		for k, e := range raw {
			v, err := decodeTextValue(e.Type, e.Value)
			if err != nil {
				return TypedValue{}, err
			}
			entries = append(entries, MapEntry{Key: k, Value: v})
		}
		sortMapEntries(entries)
		return Map(entries), nil
	default:
		return TypedValue{}, fmt.Errorf("%w: unknown type %q", kvdberr.ErrCodec, typeName)
	}
}

func sortMapEntries(entries []MapEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j-1].Key > entries[j].Key; j-- {
			entries[j-1], entries[j] = entries[j], entries[j-1]
		}
	}
}
