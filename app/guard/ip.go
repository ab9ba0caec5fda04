package guard

import (
	"net/netip"
	"strconv"
	"strings"
)

var privatePrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// Addresses that reach the local host itself. 0.0.0.0/8 is included because
// connecting to 0.0.0.0 lands on the loopback interface on Linux.
var loopbackPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("::/128"),
}

// IsPrivate reports whether ip is in a loopback, private, link-local or
// "current network" range. Strings that are not IP addresses return false.
func IsPrivate(ip string) bool {
	addr, ok := parseAddr(ip)
	if !ok {
		return false
	}
	return inAny(addr, privatePrefixes)
}

// IsLoopback reports whether ip reaches the local host.
func IsLoopback(ip string) bool {
	addr, ok := parseAddr(ip)
	if !ok {
		return false
	}
	return inAny(addr, loopbackPrefixes)
}

func parseAddr(ip string) (netip.Addr, bool) {
	ip = strings.TrimSuffix(strings.TrimPrefix(ip, "["), "]")
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return netip.Addr{}, false
	}
	// ::ffff:10.0.0.1 is classified as 10.0.0.1
	return addr.Unmap().WithZone(""), true
}

// parseLegacyIPv4 reads the inet_aton forms browsers and libc accept:
// one to four dot-separated parts, each decimal, octal with a leading 0
// or hex with 0x, where the last part fills the remaining bytes. So
// 2130706433, 0x7f000001, 0177.1 and 127.1 all mean 127.0.0.1.
func parseLegacyIPv4(host string) (netip.Addr, bool) {
	parts := strings.Split(host, ".")
	if len(parts) > 4 {
		return netip.Addr{}, false
	}

	values := make([]uint64, len(parts))
	for i, part := range parts {
		v, ok := parseIPv4Part(part)
		if !ok {
			return netip.Addr{}, false
		}
		values[i] = v
	}

	last := len(values) - 1
	for _, v := range values[:last] {
		if v > 0xff {
			return netip.Addr{}, false
		}
	}
	if values[last] >= 1<<(8*(4-last)) {
		return netip.Addr{}, false
	}

	var n uint64
	for _, v := range values[:last] {
		n = n<<8 | v
	}
	n = n<<(8*(4-last)) | values[last]

	return netip.AddrFrom4([4]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}), true
}

func parseIPv4Part(part string) (uint64, bool) {
	base := 10
	switch {
	case len(part) > 1 && (strings.HasPrefix(part, "0x") || strings.HasPrefix(part, "0X")):
		base = 16
		part = part[2:]
		if part == "" {
			// "0x" alone is zero
			return 0, true
		}
	case len(part) > 1 && part[0] == '0':
		base = 8
		part = part[1:]
	}

	if part == "" {
		return 0, false
	}
	for i := 0; i < len(part); i++ {
		c := part[i]
		isDigit := c >= '0' && c <= '9'
		isHex := (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
		if !isDigit && !(base == 16 && isHex) {
			return 0, false
		}
	}

	v, err := strconv.ParseUint(part, base, 32)
	if err != nil {
		return 0, false
	}
	return v, true
}

func inAny(addr netip.Addr, prefixes []netip.Prefix) bool {
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
