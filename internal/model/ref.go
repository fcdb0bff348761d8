package model

import (
	"fmt"
	"regexp"
	"strconv"
)

// refPattern matches inline attachment references: [ref:<integer>].
var refPattern = regexp.MustCompile(`\[ref:(\d+)\]`)

// RefMarker returns the inline marker that links log text to an attachment.
func RefMarker(attachmentID int64) string {
	return fmt.Sprintf("[ref:%d]", attachmentID)
}

// RefIDs lists the attachment ids referenced by content, in order of
// appearance, duplicates included. Content itself is never rewritten.
func RefIDs(content string) []int64 {
	matches := refPattern.FindAllStringSubmatch(content, -1)
	ids := make([]int64, 0, len(matches))
	for _, m := range matches {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue // out of int64 range; not a usable reference
		}
		ids = append(ids, id)
	}
	return ids
}
