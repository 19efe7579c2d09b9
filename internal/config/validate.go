// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validate checks instance against the embedded configSchema, returning an
// error rather than aborting the process (unlike the teacher's
// cclog.Fatalf-based internal/config/validate.go — a library has no
// business calling os.Exit on a caller's behalf).
func Validate(instance json.RawMessage) error {
	sch, err := jsonschema.CompileString("kvdb-config.schema.json", configSchema)
	if err != nil {
		return fmt.Errorf("config: compiling schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(instance, &v); err != nil {
		return fmt.Errorf("config: invalid json: %w", err)
	}

	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
