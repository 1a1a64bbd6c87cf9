// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
	"time"
)

// MaxEndpointURLLength is the maximum allowed length for an outbound endpoint URL.
const MaxEndpointURLLength = 2048

// resolveTimeout bounds hostname lookups made while validating a URL.
const resolveTimeout = 5 * time.Second

// ErrBlockedAddress is returned when an outbound endpoint points at a
// loopback, private or reserved address.
var ErrBlockedAddress = errors.New("private or reserved address")

// reservedPrefixes lists address ranges outbound calls must never reach.
var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"), // cloud metadata lives here
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("224.0.0.0/4"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("::/128"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// IsReservedAddr reports whether addr is loopback, private or otherwise
// not routable on the public internet. IPv4-mapped IPv6 addresses are
// checked as IPv4. The zero Addr counts as reserved.
func IsReservedAddr(addr netip.Addr) bool {
	if !addr.IsValid() {
		return true
	}
	addr = addr.Unmap()
	for _, p := range reservedPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// IsPrivateIP is IsReservedAddr for net.IP values.
func IsPrivateIP(ip net.IP) bool {
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return true
	}
	return IsReservedAddr(addr)
}

// EndpointPolicy controls which outbound endpoint URLs are accepted.
// The zero value accepts public http and https URLs without DNS lookups.
type EndpointPolicy struct {
	// AllowPrivate accepts loopback and private addresses. Development only.
	AllowPrivate bool
	// RequireHTTPS rejects plain http URLs.
	RequireHTTPS bool
	// Resolve looks hostnames up and checks every address they resolve to.
	Resolve bool
}

// ValidateEndpointURL checks a URL the portal is about to call out to:
// webhook receivers and the payment processor. Literal addresses are
// checked against the reserved ranges; hostnames only when the policy
// asks for resolution. SSRFSafeDialContext repeats the check at connect
// time.
func ValidateEndpointURL(rawURL string, policy EndpointPolicy) error {
	if len(rawURL) > MaxEndpointURLLength {
		return fmt.Errorf("URL exceeds maximum length of %d characters", MaxEndpointURLLength)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	switch u.Scheme {
	case "https":
	case "http":
		if policy.RequireHTTPS {
			return errors.New("URL must use https")
		}
	default:
		return errors.New("URL must use http or https scheme")
	}

	host := u.Hostname()
	if host == "" {
		return errors.New("URL must have a hostname")
	}
	if policy.AllowPrivate {
		return nil
	}

	if isLocalhostName(host) {
		return errors.New("localhost URLs are not allowed")
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		if IsReservedAddr(addr) {
			return fmt.Errorf("%s: %w", addr, ErrBlockedAddress)
		}
		return nil
	}
	if !policy.Resolve {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()
	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return fmt.Errorf("resolving %q: %w", host, err)
	}
	return checkResolved(host, addrs)
}

func isLocalhostName(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	return host == "localhost" || strings.HasSuffix(host, ".localhost")
}

func checkResolved(host string, addrs []netip.Addr) error {
	if len(addrs) == 0 {
		return fmt.Errorf("%q did not resolve to any address", host)
	}
	for _, addr := range addrs {
		if IsReservedAddr(addr) {
			return fmt.Errorf("%q resolves to %s: %w", host, addr, ErrBlockedAddress)
		}
	}
	return nil
}

// DialFunc matches http.Transport.DialContext.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// SSRFSafeDialContext wraps dialer so that every connection is made to an
// address resolved and checked in the same call. Redirects and DNS
// rebinding cannot steer a request into the private network.
func SSRFSafeDialContext(dialer *net.Dialer) DialFunc {
	return guardedDial(dialer, net.DefaultResolver.LookupNetIP)
}

type lookupFunc func(ctx context.Context, network, host string) ([]netip.Addr, error)

func guardedDial(dialer *net.Dialer, lookup lookupFunc) DialFunc {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", addr, err)
		}

		var addrs []netip.Addr
		if literal, perr := netip.ParseAddr(host); perr == nil {
			addrs = []netip.Addr{literal}
		} else {
			addrs, err = lookup(ctx, "ip", host)
			if err != nil {
				return nil, fmt.Errorf("resolving %q: %w", host, err)
			}
		}
		if err := checkResolved(host, addrs); err != nil {
			return nil, fmt.Errorf("dial blocked: %w", err)
		}

		var lastErr error
		for _, a := range addrs {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(a.Unmap().String(), port))
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
		return nil, fmt.Errorf("connecting to %q: %w", host, lastErr)
	}
}
