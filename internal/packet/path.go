package packet

import (
	"regexp"
	"strings"
)

// genericAlias matches digipeater aliases that do not identify a station.
var genericAlias = regexp.MustCompile(`^(WIDE|TRACE|NOR|SAR|TCP[A-Z0-9]{2}|NOGATE|RFONLY|NO_TX)`)

func IsGenericAlias(hop string) bool {
	return genericAlias.MatchString(hop)
}

// ReversePath returns the return path through the digipeaters that relayed a
// packet. Hops up to and including the last one marked with '*' are taken in
// reverse order, generic aliases are left out. The result is empty if no hop
// is marked.
func ReversePath(path string) string {
	var stack []string
	digipeated := false
	for _, hop := range strings.Split(path, ",") {
		if hop == "" {
			break
		}
		if strings.HasSuffix(hop, "*") {
			hop = hop[:len(hop)-1]
			digipeated = true
		} else if digipeated {
			break
		}
		if !IsGenericAlias(hop) {
			stack = append(stack, hop)
		}
	}
	if !digipeated || len(stack) == 0 {
		return ""
	}
	out := make([]string, len(stack))
	for i, hop := range stack {
		out[len(stack)-1-i] = hop
	}
	return strings.Join(out, ",")
}

// Hops splits a path into hop names with the digipeated marker removed.
func Hops(path string) []string {
	if path == "" {
		return nil
	}
	parts := strings.Split(path, ",")
	hops := make([]string, 0, len(parts))
	for _, hop := range parts {
		hop = strings.TrimSuffix(hop, "*")
		if hop != "" {
			hops = append(hops, hop)
		}
	}
	return hops
}
