package service

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// Network ranges a shortened URL must not point into when hardened
// mode is on. Covers private, loopback, link-local (cloud metadata)
// and current-network ranges for both IPv4 and IPv6.
var blockedNetworks []*net.IPNet

func init() {
	cidrs := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"169.254.0.0/16",
		"0.0.0.0/8",
		"::1/128",
		"fe80::/10",
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		blockedNetworks = append(blockedNetworks, network)
	}
}

// Hosts never accepted as redirect targets: other shorteners (redirect
// chains) and local names.
var defaultBlockedHosts = map[string]bool{
	"bit.ly":      true,
	"tinyurl.com": true,
	"t.co":        true,
	"localhost":   true,
	"127.0.0.1":   true,
}

// URLChecker validates original URLs before a mapping is created. In
// hardened mode it also resolves the host and rejects targets inside
// private or loopback ranges so short links cannot be used to probe
// internal networks.
type URLChecker struct {
	hardened     bool
	blockedHosts map[string]bool
	lookupIP     func(ctx context.Context, host string) ([]net.IP, error)
}

func NewURLChecker(hardened bool) *URLChecker {
	return &URLChecker{
		hardened:     hardened,
		blockedHosts: defaultBlockedHosts,
		lookupIP:     lookupIP,
	}
}

func lookupIP(ctx context.Context, host string) ([]net.IP, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}

	ips := make([]net.IP, len(addrs))
	for i, addr := range addrs {
		ips[i] = addr.IP
	}
	return ips, nil
}

// Validate returns ErrInvalidURL for anything that is not an absolute
// http/https URL and ErrBlockedURL for denylisted or, in hardened
// mode, internally-resolving hosts.
func (c *URLChecker) Validate(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() {
		return ErrInvalidURL
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrInvalidURL
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ErrInvalidURL
	}

	if c.blockedHosts[host] {
		return ErrBlockedURL
	}

	if !c.hardened {
		return nil
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return ErrBlockedURL
		}
		return nil
	}

	ips, err := c.lookupIP(ctx, host)
	if err != nil {
		return ErrInvalidURL
	}
	for _, ip := range ips {
		if isBlockedIP(ip) {
			return ErrBlockedURL
		}
	}

	return nil
}

func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
