package tools

import (
	"fmt"
	"net"
	"net/url"
)

// checkSSRF resolves rawURL's host and rejects it if any resolved address
// falls in a loopback, link-local, or private range. web_fetch's URL comes
// from model output, so a malicious or compromised prompt could otherwise
// use it to reach the agent's own metadata endpoints or internal services.
func checkSSRF(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("missing hostname")
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("address %s is not a public address", ip)
		}
		return nil
	}

	addrs, err := net.LookupIP(host)
	if err != nil {
		return fmt.Errorf("dns lookup failed: %w", err)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("host %s did not resolve", host)
	}
	for _, ip := range addrs {
		if isBlockedIP(ip) {
			return fmt.Errorf("host %s resolves to non-public address %s", host, ip)
		}
	}
	return nil
}

func isBlockedIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}
	privateBlocks := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"100.64.0.0/10", // carrier-grade NAT, used by some cloud metadata proxies
		"169.254.0.0/16",
		"fc00::/7",
		"::1/128",
	}
	for _, cidr := range privateBlocks {
		_, block, err := net.ParseCIDR(cidr)
		if err == nil && block.Contains(ip) {
			return true
		}
	}
	return false
}
