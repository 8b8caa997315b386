package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/campaigner/pkg/campaign"
	"github.com/dmitrymomot/campaigner/pkg/logger"
	"github.com/dmitrymomot/campaigner/pkg/mailer"
	"github.com/dmitrymomot/campaigner/pkg/placeholder"
)

type createCampaignRequest struct {
	SendAt        *time.Time `json:"send_at"`
	ContactsID    string     `json:"contacts_id"`
	Subject       string     `json:"subject"`
	Body          string     `json:"body"`
	Template      string     `json:"template"`
	Domain        string     `json:"domain"`
	APIKey        string     `json:"api_key"`
	AttachmentKey string     `json:"attachment_key"`
	HTML          bool       `json:"html"`
}

// template prefers a full template document over separate subject and body.
func (req createCampaignRequest) template() (placeholder.Template, error) {
	if strings.TrimSpace(req.Template) != "" {
		return placeholder.Parse([]byte(req.Template))
	}
	return placeholder.Template{Subject: req.Subject, Body: req.Body}, nil
}

type createCampaignResponse struct {
	SendAt   *time.Time     `json:"send_at,omitempty"`
	ID       string         `json:"id"`
	State    campaign.State `json:"state"`
	Warnings []string       `json:"warnings,omitempty"`
	Total    int            `json:"total"`
}

// createCampaign launches a pass over a previously uploaded contact set.
func (s *Server) createCampaign(w http.ResponseWriter, r *http.Request) error {
	var req createCampaignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if req.ContactsID == "" {
		return newHTTPError(http.StatusBadRequest, "contacts_id is required")
	}

	tpl, err := req.template()
	if err != nil {
		he := newHTTPError(http.StatusBadRequest, err.Error())
		he.Err = err
		return he
	}

	set, err := s.deps.Uploads.Load(r.Context(), req.ContactsID)
	if err != nil {
		return err
	}

	var attachment *mailer.Attachment
	if req.AttachmentKey != "" {
		if attachment, err = s.deps.Materials.Get(r.Context(), req.AttachmentKey); err != nil {
			return err
		}
	}

	c := campaign.Campaign{
		Contacts:    set,
		Template:    tpl,
		Credentials: campaign.Credentials{Domain: req.Domain, APIKey: req.APIKey},
		Attachment:  attachment,
		HTML:        req.HTML,
	}
	if req.SendAt != nil {
		c.SendAt = *req.SendAt
	}

	task, err := s.deps.Manager.Launch(r.Context(), c)
	if err != nil {
		return err
	}

	var warnings []string
	for _, field := range tpl.Missing(set.Columns()) {
		warnings = append(warnings, "placeholder {"+field+"} has no matching column and will be sent verbatim")
	}

	ctx := logger.WithCampaignID(r.Context(), task.ID())
	s.log.InfoContext(ctx, "campaign launched",
		slog.Int("contacts", set.Len()),
		slog.Any("credentials", c.Credentials),
		slog.Bool("attachment", attachment != nil),
	)

	snap := task.Snapshot()
	writeJSON(w, http.StatusAccepted, createCampaignResponse{
		ID:       task.ID(),
		State:    snap.State,
		Total:    snap.Total,
		SendAt:   snap.SendAt,
		Warnings: warnings,
	})
	return nil
}

func (s *Server) getCampaign(w http.ResponseWriter, r *http.Request) error {
	report, err := s.deps.Manager.Report(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, report)
	return nil
}

func (s *Server) cancelCampaign(w http.ResponseWriter, r *http.Request) error {
	campaignID := chi.URLParam(r, "id")
	err := s.deps.Manager.Cancel(r.Context(), campaignID)
	switch {
	case errors.Is(err, campaign.ErrFinished):
		return newHTTPError(http.StatusConflict, "campaign already finished")
	case err != nil:
		return err
	}

	s.log.InfoContext(logger.WithCampaignID(r.Context(), campaignID), "campaign cancel requested")
	writeJSON(w, http.StatusAccepted, map[string]string{"id": campaignID, "status": "canceling"})
	return nil
}
