package guard

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"
)

const maxRedirects = 10

var (
	ErrPrivateDial     = errors.New("connection to private address refused")
	ErrRedirectBlocked = errors.New("redirect blocked")
)

// NewStrictClient returns an HTTP client for third-party content. The
// dialer refuses private addresses at connect time, which also covers DNS
// answers that changed after validation, and every redirect target is
// validated with the strict policy.
func (g *Guard) NewStrictClient(timeout time.Duration) *http.Client {
	return g.newClient(timeout, checkDialAddress, g.ValidateForProxy)
}

// NewFeedClient returns an HTTP client for reader-supplied feed URLs.
// Private networks stay reachable, but the dialer refuses loopback and
// cloud metadata addresses, and redirects are validated with the
// permissive policy.
func (g *Guard) NewFeedClient(timeout time.Duration) *http.Client {
	return g.newClient(timeout, checkFeedDialAddress, g.ValidateForFeed)
}

func (g *Guard) newClient(timeout time.Duration, checkDial func(string) error,
	validate func(context.Context, string) Verdict) *http.Client {
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
		Control: func(network, address string, _ syscall.RawConn) error {
			return checkDial(address)
		},
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			if verdict := validate(req.Context(), req.URL.String()); !verdict.Safe {
				return fmt.Errorf("%w: %s", ErrRedirectBlocked, verdict.Reason)
			}
			return nil
		},
	}
}

func checkDialAddress(address string) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("invalid dial address %q: %w", address, err)
	}

	if IsPrivate(host) || IsLoopback(host) {
		return fmt.Errorf("%w: %s", ErrPrivateDial, host)
	}

	return nil
}

func checkFeedDialAddress(address string) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("invalid dial address %q: %w", address, err)
	}

	if IsLoopback(host) {
		return fmt.Errorf("%w: %s", ErrPrivateDial, host)
	}
	if addr, ok := parseAddr(host); ok && blockedHostnames[addr.String()] {
		return fmt.Errorf("%w: %s", ErrPrivateDial, host)
	}

	return nil
}
