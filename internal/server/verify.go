package server

import (
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/campaigner/pkg/campaign"
	"github.com/dmitrymomot/campaigner/pkg/dnscheck"
)

type verifyRequest struct {
	Domain   string `json:"domain"`
	APIKey   string `json:"api_key"`
	CheckDNS bool   `json:"check_dns"`
}

type verifyResponse struct {
	DNS    *dnscheck.Result `json:"dns,omitempty"`
	Status string           `json:"status"`
}

// verifyCredentials sends one test message with the given credentials.
// With check_dns the domain's MX and SPF records are checked first.
func (s *Server) verifyCredentials(w http.ResponseWriter, r *http.Request) error {
	var req verifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	creds := campaign.Credentials{Domain: req.Domain, APIKey: req.APIKey}
	if err := creds.Validate(); err != nil {
		return err
	}

	resp := verifyResponse{Status: "verified"}
	if req.CheckDNS {
		res, err := s.deps.DNS.SendingDomain(r.Context(), creds.Domain)
		if err != nil {
			return err
		}
		resp.DNS = &res
	}

	if err := s.deps.Dispatcher.Verify(r.Context(), creds); err != nil {
		s.log.WarnContext(r.Context(), "credential verification failed",
			slog.Any("credentials", creds),
			slog.String("error", err.Error()),
		)
		return err
	}

	s.log.InfoContext(r.Context(), "credentials verified", slog.Any("credentials", creds))
	writeJSON(w, http.StatusOK, resp)
	return nil
}
