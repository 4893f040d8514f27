package internal

import "strings"

// Accepts reports whether a root-relative path may be exposed by any
// listing, watch or glob endpoint. A path is rejected when any of its
// segments starts with a dot.
func Accepts(name string) bool {
	for _, segment := range strings.Split(strings.ReplaceAll(name, "\\", "/"), "/") {
		if strings.HasPrefix(segment, ".") {
			return false
		}
	}
	return true
}
