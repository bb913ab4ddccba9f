package cache

import (
	"fmt"
	"regexp"
	"strings"
)

// entityKeyPattern matches argument names that reference business entities.
// A mutation to the entity should invalidate entries whose arguments
// mention it.
var entityKeyPattern = regexp.MustCompile(`(?i)^(doctype|customer|supplier|item|item_code|warehouse|company|party|account|project)$`)

// DeriveTags extracts invalidation tags from a tool's arguments.
//
// Each entity-like argument becomes a "key:value" tag; the tool name itself
// is always a tag so a tool's entries can be cleared wholesale.
func DeriveTags(tool string, args map[string]any) []string {
	tags := []string{"tool:" + tool}
	for key, val := range args {
		if !entityKeyPattern.MatchString(key) {
			continue
		}
		str, ok := val.(string)
		if !ok || str == "" {
			continue
		}
		tags = append(tags, fmt.Sprintf("%s:%s", strings.ToLower(key), str))
	}
	return tags
}
