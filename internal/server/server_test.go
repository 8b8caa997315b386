package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/campaigner/internal/config"
	"github.com/dmitrymomot/campaigner/internal/server"
	"github.com/dmitrymomot/campaigner/pkg/campaign"
	"github.com/dmitrymomot/campaigner/pkg/contacts"
	"github.com/dmitrymomot/campaigner/pkg/dnscheck"
	"github.com/dmitrymomot/campaigner/pkg/health"
	"github.com/dmitrymomot/campaigner/pkg/id"
	"github.com/dmitrymomot/campaigner/pkg/mailer"
	"github.com/dmitrymomot/campaigner/pkg/materials"
	"github.com/dmitrymomot/campaigner/pkg/store"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")

type outbox struct {
	mu   sync.Mutex
	sent []*mailer.Email
}

func (o *outbox) emails() []*mailer.Email {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*mailer.Email(nil), o.sent...)
}

// factory accepts any key except "bad" and fails sends to addresses at fail.example.com.
func (o *outbox) factory(creds campaign.Credentials) (mailer.Sender, error) {
	return mailer.SenderFunc(func(_ context.Context, e *mailer.Email) error {
		if creds.APIKey == "bad" {
			return &mailer.ProviderError{Provider: "mailgun", StatusCode: http.StatusUnauthorized, Body: "Forbidden"}
		}
		if strings.HasSuffix(e.To, "@fail.example.com") {
			return &mailer.ProviderError{Provider: "mailgun", StatusCode: http.StatusBadRequest, Body: `{"message":"invalid recipient"}`}
		}
		o.mu.Lock()
		defer o.mu.Unlock()
		o.sent = append(o.sent, e)
		return nil
	}), nil
}

type fakeDNS struct{ err error }

func (f fakeDNS) SendingDomain(_ context.Context, domain string) (dnscheck.Result, error) {
	if f.err != nil {
		return dnscheck.Result{}, f.err
	}
	return dnscheck.Result{Domain: domain, MX: []string{"mxa.mailgun.org"}, SPF: "v=spf1 include:mailgun.org ~all"}, nil
}

type harness struct {
	handler http.Handler
	outbox  *outbox
	srv     *server.Server
	manager *campaign.Manager
}

type harnessOption func(*config.Server, *server.Deps)

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	box := &outbox{}
	d := campaign.New(box.factory, campaign.WithDelay(0))
	reports := store.NewMemory[campaign.Report]()
	uploads := store.NewMemory[*contacts.Set]()
	t.Cleanup(func() {
		_ = reports.Close()
		_ = uploads.Close()
	})

	m := campaign.NewManager(d, campaign.WithReportStore(reports))
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	cfg := config.Server{MaxUploadSize: 1 << 20, VerifyPerMinute: 100}
	deps := server.Deps{
		Manager:    m,
		Dispatcher: d,
		Uploads:    uploads,
		Materials:  materials.NewMemory(0),
		DNS:        fakeDNS{},
	}
	for _, opt := range opts {
		opt(&cfg, &deps)
	}

	srv := server.New(cfg, deps)
	return &harness{handler: srv.Handler(), outbox: box, srv: srv, manager: m}
}

func (h *harness) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) postJSON(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return h.do(t, req)
}

func (h *harness) upload(t *testing.T, path, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return h.do(t, req)
}

func (h *harness) uploadContacts(t *testing.T, csv string) string {
	t.Helper()

	rec := h.upload(t, "/api/contacts", "contacts.csv", []byte(csv))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.ID
}

func (h *harness) waitReport(t *testing.T, campaignID string) campaign.Report {
	t.Helper()

	var report campaign.Report
	require.Eventually(t, func() bool {
		rec := h.do(t, httptest.NewRequest(http.MethodGet, "/api/campaigns/"+campaignID, nil))
		if rec.Code != http.StatusOK {
			return false
		}
		report = campaign.Report{}
		if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
			return false
		}
		return report.State.Finished()
	}, 5*time.Second, 10*time.Millisecond)
	return report
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail"`
	RequestID string `json:"request_id"`
}

func TestUploadContacts(t *testing.T) {
	t.Parallel()

	t.Run("csv", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)

		rec := h.upload(t, "/api/contacts", "list.csv", []byte("Email,Name,City\nalice@x.com,Alice,Paris\n,Ghost,Nowhere\nbob@x.com,Bob,Rome\n"))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		resp := decode[struct {
			ID      string              `json:"id"`
			Columns []string            `json:"columns"`
			Preview []map[string]string `json:"preview"`
			Skipped []int               `json:"skipped"`
			Count   int                 `json:"count"`
		}](t, rec)
		require.True(t, id.IsULID(resp.ID))
		require.Equal(t, 2, resp.Count)
		require.Equal(t, []string{"email", "name", "City"}, resp.Columns)
		require.Equal(t, []int{3}, resp.Skipped)
		require.Equal(t, "alice@x.com", resp.Preview[0]["email"])

		got := h.do(t, httptest.NewRequest(http.MethodGet, "/api/contacts/"+resp.ID, nil))
		require.Equal(t, http.StatusOK, got.Code)
	})

	tests := []struct {
		name     string
		filename string
		content  string
		want     int
	}{
		{name: "unsupported format", filename: "list.txt", content: "email\na@x.com\n", want: http.StatusBadRequest},
		{name: "missing email column", filename: "list.csv", content: "Name\nAlice\n", want: http.StatusBadRequest},
		{name: "malformed xlsx", filename: "list.xlsx", content: "not a zip", want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)

			rec := h.upload(t, "/api/contacts", tt.filename, []byte(tt.content))
			require.Equal(t, tt.want, rec.Code, rec.Body.String())
			require.NotEmpty(t, decode[errorResponse](t, rec).Error)
		})
	}

	t.Run("missing file field", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)

		req := httptest.NewRequest(http.MethodPost, "/api/contacts", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		rec := h.do(t, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("too large", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, func(cfg *config.Server, _ *server.Deps) { cfg.MaxUploadSize = 16 })

		rec := h.upload(t, "/api/contacts", "list.csv", []byte("email\n"+strings.Repeat("a@x.com\n", 10)))
		require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("unknown upload", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)

		rec := h.do(t, httptest.NewRequest(http.MethodGet, "/api/contacts/nope", nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCampaignLifecycle(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	contactsID := h.uploadContacts(t, "Email,Name\nalice@x.com,Alice\nbob@fail.example.com,Bob\ncarol@x.com,Carol\n")

	rec := h.postJSON(t, "/api/campaigns", map[string]any{
		"contacts_id": contactsID,
		"subject":     "Hello {name}",
		"body":        "Hi {name}! Your code is {code}.",
		"domain":      "mg.example.com",
		"api_key":     "key-123",
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	created := decode[struct {
		ID       string   `json:"id"`
		Warnings []string `json:"warnings"`
		Total    int      `json:"total"`
	}](t, rec)
	require.Equal(t, 3, created.Total)
	require.Len(t, created.Warnings, 1)
	require.Contains(t, created.Warnings[0], "{code}")

	report := h.waitReport(t, created.ID)
	require.Equal(t, campaign.StateCompleted, report.State)
	require.Equal(t, []campaign.Status{campaign.StatusSent, campaign.StatusFailed, campaign.StatusSent}, report.Statuses())
	require.Equal(t, "invalid recipient", report.Results[1].Detail)
	require.NotEmpty(t, report.Log)

	sent := h.outbox.emails()
	require.Len(t, sent, 2)
	require.Equal(t, "alice@x.com", sent[0].To)
	require.Equal(t, "Hello Alice", sent[0].Subject)
	require.Equal(t, "Hi Alice! Your code is {code}.", sent[0].Text)
	require.Equal(t, "Your Name <mailgun@mg.example.com>", sent[0].From)

	rec = h.do(t, httptest.NewRequest(http.MethodDelete, "/api/campaigns/"+created.ID, nil))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateCampaign_TemplateDocumentAndAttachment(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	contactsID := h.uploadContacts(t, "email,name\nalice@x.com,Alice\n")

	rec := h.upload(t, "/api/materials", "brochure.pdf", samplePDF)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	info := decode[materials.Info](t, rec)

	rec = h.postJSON(t, "/api/campaigns", map[string]any{
		"contacts_id":    contactsID,
		"template":       "---\nsubject: News for {name}\n---\nHi **{name}**",
		"domain":         "mg.example.com",
		"api_key":        "key-123",
		"attachment_key": info.Key,
		"html":           true,
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	created := decode[struct {
		ID string `json:"id"`
	}](t, rec)

	report := h.waitReport(t, created.ID)
	require.Equal(t, 1, report.Sent)

	sent := h.outbox.emails()
	require.Len(t, sent, 1)
	require.Equal(t, "News for Alice", sent[0].Subject)
	require.Contains(t, sent[0].HTML, "<strong>Alice</strong>")
	require.NotNil(t, sent[0].Attachment)
	require.Equal(t, "brochure.pdf", sent[0].Attachment.Filename)
	require.Equal(t, samplePDF, sent[0].Attachment.Content)
}

func TestCreateCampaign_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body func(contactsID string) map[string]any
		csv  string
		want int
	}{
		{
			name: "unknown contacts",
			body: func(string) map[string]any {
				return map[string]any{"contacts_id": "missing", "subject": "s", "body": "b", "domain": "d.com", "api_key": "k"}
			},
			want: http.StatusNotFound,
		},
		{
			name: "missing contacts id",
			body: func(string) map[string]any {
				return map[string]any{"subject": "s", "body": "b", "domain": "d.com", "api_key": "k"}
			},
			want: http.StatusBadRequest,
		},
		{
			name: "missing credentials",
			body: func(id string) map[string]any {
				return map[string]any{"contacts_id": id, "subject": "s", "body": "b"}
			},
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "empty contact set",
			csv:  "email,name\n,Nobody\n",
			body: func(id string) map[string]any {
				return map[string]any{"contacts_id": id, "subject": "s", "body": "b", "domain": "d.com", "api_key": "k"}
			},
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "unknown attachment",
			body: func(id string) map[string]any {
				return map[string]any{"contacts_id": id, "subject": "s", "body": "b", "domain": "d.com", "api_key": "k", "attachment_key": "materials/nope.pdf"}
			},
			want: http.StatusNotFound,
		},
		{
			name: "unknown field",
			body: func(id string) map[string]any {
				return map[string]any{"contacts_id": id, "subjct": "typo"}
			},
			want: http.StatusBadRequest,
		},
		{
			name: "broken frontmatter",
			body: func(id string) map[string]any {
				return map[string]any{"contacts_id": id, "template": "---\nsubject: x\nno closing", "domain": "d.com", "api_key": "k"}
			},
			want: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)

			csv := tt.csv
			if csv == "" {
				csv = "email\na@x.com\n"
			}
			contactsID := h.uploadContacts(t, csv)

			rec := h.postJSON(t, "/api/campaigns", tt.body(contactsID))
			require.Equal(t, tt.want, rec.Code, rec.Body.String())
			require.Empty(t, h.outbox.emails())
		})
	}
}

func TestCancelCampaign(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	contactsID := h.uploadContacts(t, "email\na@x.com\nb@x.com\n")
	sendAt := time.Now().Add(time.Hour)

	rec := h.postJSON(t, "/api/campaigns", map[string]any{
		"contacts_id": contactsID,
		"subject":     "s",
		"body":        "b",
		"domain":      "d.com",
		"api_key":     "k",
		"send_at":     sendAt,
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	created := decode[struct {
		ID    string         `json:"id"`
		State campaign.State `json:"state"`
	}](t, rec)
	require.Equal(t, campaign.StateScheduled, created.State)

	rec = h.do(t, httptest.NewRequest(http.MethodDelete, "/api/campaigns/"+created.ID, nil))
	require.Equal(t, http.StatusAccepted, rec.Code)

	report := h.waitReport(t, created.ID)
	require.Equal(t, campaign.StateCanceled, report.State)
	require.Empty(t, report.Results)
	require.Empty(t, h.outbox.emails())

	rec = h.do(t, httptest.NewRequest(http.MethodDelete, "/api/campaigns/unknown", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = h.do(t, httptest.NewRequest(http.MethodGet, "/api/campaigns/unknown", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVerifyCredentials(t *testing.T) {
	t.Parallel()

	t.Run("success sends one test message", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)

		rec := h.postJSON(t, "/api/credentials/verify", map[string]any{"domain": "mg.example.com", "api_key": "key-123", "check_dns": true})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[struct {
			DNS    *dnscheck.Result `json:"dns"`
			Status string           `json:"status"`
		}](t, rec)
		require.Equal(t, "verified", resp.Status)
		require.NotNil(t, resp.DNS)
		require.Equal(t, "mg.example.com", resp.DNS.Domain)

		sent := h.outbox.emails()
		require.Len(t, sent, 1)
		require.Equal(t, campaign.DefaultVerifyAddress, sent[0].To)
		require.Equal(t, "Mailgun Test Email", sent[0].Subject)
		require.Equal(t, "Test User <mailgun@mg.example.com>", sent[0].From)
	})

	t.Run("provider rejection", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)

		rec := h.postJSON(t, "/api/credentials/verify", map[string]any{"domain": "mg.example.com", "api_key": "bad"})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		resp := decode[errorResponse](t, rec)
		require.Equal(t, "Forbidden", resp.Detail)
		require.NotContains(t, resp.Error, "bad")
		require.Equal(t, rec.Header().Get("X-Request-ID"), resp.RequestID)
	})

	t.Run("missing fields", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)

		rec := h.postJSON(t, "/api/credentials/verify", map[string]any{"domain": "mg.example.com"})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.Empty(t, h.outbox.emails())
	})

	t.Run("dns failure skips the send", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, func(_ *config.Server, deps *server.Deps) {
			deps.DNS = fakeDNS{err: fmt.Errorf("%w: mg.example.com", dnscheck.ErrNoMXRecords)}
		})

		rec := h.postJSON(t, "/api/credentials/verify", map[string]any{"domain": "mg.example.com", "api_key": "key-123", "check_dns": true})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.Empty(t, h.outbox.emails())
	})

	t.Run("rate limited per client", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, func(cfg *config.Server, _ *server.Deps) { cfg.VerifyPerMinute = 1 })

		body := map[string]any{"domain": "mg.example.com", "api_key": "key-123"}
		require.Equal(t, http.StatusOK, h.postJSON(t, "/api/credentials/verify", body).Code)
		require.Equal(t, http.StatusTooManyRequests, h.postJSON(t, "/api/credentials/verify", body).Code)
		require.Len(t, h.outbox.emails(), 1)
	})
}

func TestMaterials(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	rec := h.upload(t, "/api/materials", "notes.pdf", []byte("plain text pretending"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.upload(t, "/api/materials", "brochure.pdf", samplePDF)
	require.Equal(t, http.StatusCreated, rec.Code)
	info := decode[materials.Info](t, rec)
	require.Equal(t, int64(len(samplePDF)), info.Size)

	rec = h.do(t, httptest.NewRequest(http.MethodDelete, "/api/materials/"+info.Key, nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(t, httptest.NewRequest(http.MethodDelete, "/api/materials/"+info.Key, nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndRouting(t *testing.T) {
	t.Parallel()
	h := newHarness(t, func(_ *config.Server, deps *server.Deps) {
		deps.Checks = health.Checks{"redis": func(context.Context) error { return errors.New("connection refused") }}
	})

	rec := h.do(t, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, id.IsULID(rec.Header().Get("X-Request-ID")))

	rec = h.do(t, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = h.do(t, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "route not found", decode[errorResponse](t, rec).Error)

	rec = h.do(t, httptest.NewRequest(http.MethodPut, "/api/campaigns", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServe_GracefulShutdown(t *testing.T) {
	t.Parallel()

	var hookCalled bool
	h := newHarness(t, func(_ *config.Server, deps *server.Deps) {
		deps.ShutdownHooks = append(deps.ShutdownHooks, func(context.Context) error {
			hookCalled = true
			return nil
		})
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health/live")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	require.True(t, hookCalled)

	_, err = h.manager.Launch(context.Background(), campaign.Campaign{})
	require.ErrorIs(t, err, campaign.ErrShuttingDown)
}
