// Package dnscheck verifies that a sending domain is set up to deliver mail.
//
// SendingDomain looks up the domain's MX records and its SPF TXT record. It is
// a cheap local pre-check before spending a provider request on credentials
// that cannot work.
//
//	if _, err := dnscheck.SendingDomain(ctx, "mg.example.com"); err != nil {
//		switch {
//		case errors.Is(err, dnscheck.ErrNoMXRecords):
//		case errors.Is(err, dnscheck.ErrNoSPFRecord):
//		}
//	}
package dnscheck

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Resolver is the subset of *net.Resolver used for checks.
type Resolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// Result describes what was found for a domain.
type Result struct {
	Domain string   `json:"domain"`
	MX     []string `json:"mx"`
	SPF    string   `json:"spf"`
}

// Checker runs lookups against a Resolver.
type Checker struct {
	resolver Resolver
}

// New creates a Checker. A nil resolver uses net.DefaultResolver.
func New(r Resolver) *Checker {
	if r == nil {
		r = net.DefaultResolver
	}
	return &Checker{resolver: r}
}

// SendingDomain checks domain with the default resolver.
func SendingDomain(ctx context.Context, domain string) (Result, error) {
	return New(nil).SendingDomain(ctx, domain)
}

// SendingDomain requires at least one MX record and a "v=spf1" TXT record.
func (c *Checker) SendingDomain(ctx context.Context, domain string) (Result, error) {
	domain, err := normalize(domain)
	if err != nil {
		return Result{}, err
	}
	res := Result{Domain: domain}

	mx, err := c.resolver.LookupMX(ctx, domain)
	if err != nil && !notFound(err) {
		return res, fmt.Errorf("%w: mx %s: %v", ErrLookupFailed, domain, err)
	}
	for _, r := range mx {
		res.MX = append(res.MX, strings.TrimSuffix(r.Host, "."))
	}
	if len(res.MX) == 0 {
		return res, ErrNoMXRecords
	}

	txt, err := c.resolver.LookupTXT(ctx, domain)
	if err != nil && !notFound(err) {
		return res, fmt.Errorf("%w: txt %s: %v", ErrLookupFailed, domain, err)
	}
	for _, record := range txt {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(record)), "v=spf1") {
			res.SPF = record
			return res, nil
		}
	}
	return res, ErrNoSPFRecord
}

func normalize(domain string) (string, error) {
	domain = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
	if domain == "" || len(domain) > 253 || !strings.Contains(domain, ".") {
		return "", ErrInvalidDomain
	}
	for label := range strings.SplitSeq(domain, ".") {
		if label == "" || len(label) > 63 || label[0] == '-' || label[len(label)-1] == '-' {
			return "", ErrInvalidDomain
		}
		for _, r := range label {
			if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
				return "", ErrInvalidDomain
			}
		}
	}
	return domain, nil
}

func notFound(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && dnsErr.IsNotFound
}
