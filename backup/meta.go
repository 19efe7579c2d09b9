// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// This file lays out the on-disk path conventions for backup archives,
// mirroring checkpoint/meta.go's naming scheme (spec §6.4: "backups/<id>/...").
package backup

import (
	"fmt"
	"path/filepath"
)

func archivePath(dir string, id string) string {
	return filepath.Join(dir, fmt.Sprintf("backup_%s.tar.gz", id))
}

func archiveDir(dir string) string {
	return filepath.Join(dir, "backups")
}
