// Package privacy reduces client identifiers before they are written to logs.
package privacy

import (
	"fmt"
	"net"
)

// AnonymizeIP keeps the /24 of an IPv4 address and the /48 of an IPv6 address.
// Empty input yields "unknown" and unparseable input yields "invalid".
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "invalid"
	}
	if v4 := parsed.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d.0", v4[0], v4[1], v4[2])
	}
	return fmt.Sprintf("%02x%02x:%02x%02x:%02x%02x::",
		parsed[0], parsed[1], parsed[2], parsed[3], parsed[4], parsed[5])
}
