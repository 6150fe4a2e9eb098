// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"encoding/xml"
	"strings"
)

func escapeXML(s string) (string, error) {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return "", err
	}
	return b.String(), nil
}
