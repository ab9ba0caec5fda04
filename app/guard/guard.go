package guard

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/idna"
	"golang.org/x/text/unicode/norm"
)

const defaultLookupTimeout = 5 * time.Second

// Hostnames that are refused under every policy.
var blockedHostnames = map[string]bool{
	"localhost":                true,
	"127.0.0.1":                true,
	"0.0.0.0":                  true,
	"::1":                      true,
	"::":                       true,
	"169.254.169.254":          true, // AWS, Azure, GCP, DigitalOcean
	"fd00:ec2::254":            true, // AWS IMDS over IPv6
	"100.100.100.200":          true, // Alibaba Cloud
	"192.0.0.192":              true, // Oracle Cloud
	"metadata":                 true,
	"metadata.google.internal": true,
	"metadata.goog":            true,
}

var blockedSuffixes = []string{".local", ".localhost"}

var blockedPrefixes = []string{"metadata."}

// Guard decides whether a URL is safe to fetch from this process.
type Guard struct {
	resolver      Resolver
	cache         *ResolveCache
	ttl           time.Duration
	lookupTimeout time.Duration
	now           func() time.Time
}

// NewGuard creates a guard backed by resolver and cache. A nil resolver
// means net.DefaultResolver; a non-positive ttl means DefaultCacheTTL.
func NewGuard(resolver Resolver, cache *ResolveCache, ttl time.Duration) *Guard {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &Guard{
		resolver:      resolver,
		cache:         cache,
		ttl:           ttl,
		lookupTimeout: defaultLookupTimeout,
		now:           time.Now,
	}
}

// ValidateForProxy applies the strict policy.
func (g *Guard) ValidateForProxy(ctx context.Context, rawURL string) Verdict {
	return g.Validate(ctx, rawURL, StrictPolicy)
}

// ValidateForFeed applies the permissive policy.
func (g *Guard) ValidateForFeed(ctx context.Context, rawURL string) Verdict {
	return g.Validate(ctx, rawURL, PermissivePolicy)
}

func (g *Guard) Validate(ctx context.Context, rawURL string, policy Policy) Verdict {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" {
		return deny(ReasonInvalidURL)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return deny(ReasonInvalidProtocol)
	}

	hostname, err := canonicalHostname(u)
	if err != nil {
		return deny(ReasonInvalidURL)
	}

	if blockedHostnames[hostname] {
		return deny(ReasonBlockedHost)
	}

	if matchesBlockedPattern(hostname) {
		return deny(ReasonBlockedPattern)
	}

	if _, ok := parseAddr(hostname); ok {
		return g.classifyLiteral(hostname, policy)
	}

	ip, err := g.resolve(ctx, hostname)
	if err != nil {
		// The fetch that follows fails on its own.
		slog.Debug("DNS resolution failed, allowing", "hostname", hostname, "policy", policy.Name, "error", err)
		return allow()
	}

	if !IsPrivate(ip) {
		return allow()
	}

	if policy.BlockPrivateIPs {
		return deny(ReasonResolvesPrivate)
	}
	return allowWithWarning(ReasonResolvesPrivate)
}

// SweepCache removes resolutions older than the guard's TTL.
func (g *Guard) SweepCache() int {
	if g.cache == nil {
		return 0
	}
	return g.cache.CleanExpired(g.ttl)
}

func (g *Guard) CacheLen() int {
	if g.cache == nil {
		return 0
	}
	return g.cache.Len()
}

func (g *Guard) classifyLiteral(ip string, policy Policy) Verdict {
	if !IsPrivate(ip) && !IsLoopback(ip) {
		return allow()
	}

	if policy.BlockPrivateIPs {
		return deny(ReasonPrivateIP)
	}

	if policy.BlockLoopbackOnly && IsLoopback(ip) {
		return deny(ReasonLoopbackIP)
	}

	return allowWithWarning(ReasonPrivateIP)
}

func (g *Guard) resolve(ctx context.Context, hostname string) (string, error) {
	if g.cache != nil {
		// Entries older than the TTL are re-resolved even if the hourly sweep
		// has not reached them yet.
		if entry, ok := g.cache.Get(hostname); ok && g.now().Sub(entry.ResolvedAt) <= g.ttl {
			return entry.IP, nil
		}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, g.lookupTimeout)
	defer cancel()

	addrs, err := g.resolver.LookupHost(lookupCtx, hostname)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", hostname, err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("no addresses for %s", hostname)
	}

	ip := pickAddress(addrs)
	if g.cache != nil {
		g.cache.Set(hostname, CacheEntry{IP: ip, ResolvedAt: g.now()})
	}

	return ip, nil
}

// pickAddress returns the first private address when there is one, so a
// hostname with mixed records is judged by its most dangerous answer.
func pickAddress(addrs []string) string {
	for _, a := range addrs {
		if IsPrivate(a) {
			return a
		}
	}
	return addrs[0]
}

func canonicalHostname(u *url.URL) (string, error) {
	hostname := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if hostname == "" {
		return "", fmt.Errorf("empty hostname")
	}

	if addr, ok := parseAddr(hostname); ok {
		return addr.String(), nil
	}
	if addr, ok := parseLegacyIPv4(hostname); ok {
		return addr.String(), nil
	}

	if isASCII(hostname) {
		return hostname, nil
	}

	// Full-width and other compatibility forms fold to ASCII before the
	// blocklist sees them.
	ascii, err := idna.Lookup.ToASCII(norm.NFKC.String(hostname))
	if err != nil {
		return "", fmt.Errorf("invalid internationalized hostname: %w", err)
	}

	ascii = strings.TrimSuffix(strings.ToLower(ascii), ".")
	if addr, ok := parseAddr(ascii); ok {
		return addr.String(), nil
	}
	if addr, ok := parseLegacyIPv4(ascii); ok {
		return addr.String(), nil
	}
	return ascii, nil
}

func matchesBlockedPattern(hostname string) bool {
	for _, suffix := range blockedSuffixes {
		if strings.HasSuffix(hostname, suffix) {
			return true
		}
	}
	for _, prefix := range blockedPrefixes {
		if strings.HasPrefix(hostname, prefix) {
			return true
		}
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
