// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// This file keeps the shape of the original implementation's
// SerializationFactory (original_source/src/storage/serialization_factory.cpp),
// which dispatched to one of several wire codecs (binary, JSON, Protobuf,
// MessagePack) by name. The distilled spec only requires binary + text, and
// extra codecs are not excluded by any Non-goal, so the registry keeps a
// place for a third codec (Protobuf/MessagePack) to be registered without
// pulling in an unused parser dependency today.
package value

// CodecName identifies a registered wire codec.
type CodecName string

const (
	CodecBinary CodecName = "binary"
	CodecText   CodecName = "text"
)

// Codec encodes/decodes a TypedValue for one wire format.
type Codec struct {
	Name      CodecName
	Encode    func(TypedValue) ([]byte, error)
	Decode    func([]byte) (TypedValue, error)
}

var registry = map[CodecName]Codec{
	CodecBinary: {
		Name: CodecBinary,
		Encode: func(v TypedValue) ([]byte, error) {
			return SerializeBinary(v), nil
		},
		Decode: DeserializeBinary,
	},
	CodecText: {
		Name: CodecText,
		Encode: func(v TypedValue) ([]byte, error) {
			return SerializeText(v, false)
		},
		Decode: DeserializeText,
	},
}

// RegisterCodec adds or replaces a named codec. Used by tests and by future
// codec additions (e.g. a Protobuf or MessagePack codec grounded on
// original_source/src/storage/protobuf_serializer.* /
// messagepack_serializer.*) without changing call sites that look codecs
// up by name.
func RegisterCodec(c Codec) { registry[c.Name] = c }

// LookupCodec returns the codec registered under name, and whether it exists.
func LookupCodec(name CodecName) (Codec, bool) {
	c, ok := registry[name]
	return c, ok
}
