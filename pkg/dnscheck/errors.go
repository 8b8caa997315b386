package dnscheck

import "errors"

var (
	ErrInvalidDomain = errors.New("dnscheck: invalid domain")
	ErrLookupFailed  = errors.New("dnscheck: dns lookup failed")
	ErrNoMXRecords   = errors.New("dnscheck: no mx records")
	ErrNoSPFRecord   = errors.New("dnscheck: no spf record")
)
