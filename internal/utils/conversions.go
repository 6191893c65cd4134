package utils

import (
	"fmt"
	"strings"
)

// ToTagSlice flattens a loosely typed tag list. Plain strings are kept, objects
// contribute their "name" field and numbers are formatted.
func ToTagSlice(slice []any) []string {
	tags := make([]string, 0, len(slice))
	for _, v := range slice {
		var tag string
		switch t := v.(type) {
		case string:
			tag = t
		case float64:
			tag = fmt.Sprintf("%g", t)
		case map[string]any:
			tag, _ = t["name"].(string)
		}
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
