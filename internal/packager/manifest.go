// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"fmt"
	"strings"
	"time"
)

// Manifest renders the jar manifest written as the first entry.
func Manifest(createdBy string) string {
	var b strings.Builder
	b.WriteString("Manifest-Version: 1.0\r\n")
	if createdBy != "" {
		fmt.Fprintf(&b, "Created-By: %s\r\n", createdBy)
	}
	b.WriteString("\r\n")
	return b.String()
}

func (a *Archive) manifestEntry() *entry {
	modified := a.timestamp
	if modified.IsZero() {
		modified = time.Now()
	}
	return &entry{
		name:     manifestName,
		data:     []byte(Manifest(a.createdBy)),
		mode:     fileMode,
		modified: modified,
	}
}
