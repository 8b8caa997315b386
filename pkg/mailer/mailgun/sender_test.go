package mailgun_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/campaigner/pkg/mailer"
	"github.com/dmitrymomot/campaigner/pkg/mailer/mailgun"
)

type captured struct {
	path        string
	user        string
	pass        string
	fields      map[string]string
	fileName    string
	fileType    string
	fileContent []byte
}

func newProvider(t *testing.T, status int, body string) (*httptest.Server, func() captured) {
	t.Helper()

	var (
		mu  sync.Mutex
		got captured
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()

		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		got.path = r.URL.Path
		got.user, got.pass, _ = r.BasicAuth()
		got.fields = make(map[string]string)
		for k, v := range r.MultipartForm.Value {
			got.fields[k] = v[0]
		}
		if files := r.MultipartForm.File["attachment"]; len(files) > 0 {
			got.fileName = files[0].Filename
			got.fileType = files[0].Header.Get("Content-Type")
			f, err := files[0].Open()
			require.NoError(t, err)
			got.fileContent, _ = io.ReadAll(f)
			_ = f.Close()
		}

		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv, func() captured {
		mu.Lock()
		defer mu.Unlock()
		return got
	}
}

func TestSender_Send(t *testing.T) {
	t.Parallel()

	t.Run("posts form fields with basic auth", func(t *testing.T) {
		t.Parallel()

		srv, got := newProvider(t, http.StatusOK, `{"id":"<1@mg.example.com>","message":"Queued. Thank you."}`)
		s := mailgun.New(mailgun.Config{Domain: "mg.example.com", APIKey: "key-123", BaseURL: srv.URL, SenderName: "Your Name"})

		err := s.Send(context.Background(), &mailer.Email{
			From:    "Your Name <mailgun@mg.example.com>",
			To:      "alice@example.com",
			Subject: "Hello Alice",
			Text:    "Hi Alice!",
		})
		require.NoError(t, err)

		c := got()
		require.Equal(t, "/mg.example.com/messages", c.path)
		require.Equal(t, "api", c.user)
		require.Equal(t, "key-123", c.pass)
		require.Equal(t, "Your Name <mailgun@mg.example.com>", c.fields["from"])
		require.Equal(t, "alice@example.com", c.fields["to"])
		require.Equal(t, "Hello Alice", c.fields["subject"])
		require.Equal(t, "Hi Alice!", c.fields["text"])
		require.NotContains(t, c.fields, "html")
		require.Empty(t, c.fileName)
	})

	t.Run("fills default sender from domain", func(t *testing.T) {
		t.Parallel()

		srv, got := newProvider(t, http.StatusOK, "{}")
		s := mailgun.New(mailgun.Config{Domain: "mg.example.com", APIKey: "k", BaseURL: srv.URL, SenderName: "Campaigns"})

		require.NoError(t, s.Send(context.Background(), &mailer.Email{To: "a@x.com", Subject: "s", Text: "t"}))
		require.Equal(t, "Campaigns <mailgun@mg.example.com>", got().fields["from"])
	})

	t.Run("includes attachment as file part", func(t *testing.T) {
		t.Parallel()

		srv, got := newProvider(t, http.StatusOK, "{}")
		s := mailgun.New(mailgun.Config{Domain: "mg.example.com", APIKey: "k", BaseURL: srv.URL})

		pdf := []byte("%PDF-1.4 brochure")
		err := s.Send(context.Background(), &mailer.Email{
			From:    "a@mg.example.com",
			To:      "b@x.com",
			Subject: "Materials",
			Text:    "Attached.",
			HTML:    "<p>Attached.</p>",
			Attachment: &mailer.Attachment{
				Filename:    "brochure.pdf",
				ContentType: "application/pdf",
				Content:     pdf,
			},
		})
		require.NoError(t, err)

		c := got()
		require.Equal(t, "brochure.pdf", c.fileName)
		require.Equal(t, "application/pdf", c.fileType)
		require.Equal(t, pdf, c.fileContent)
		require.Equal(t, "<p>Attached.</p>", c.fields["html"])
		require.Equal(t, "Materials", c.fields["subject"])
	})

	t.Run("non-200 status is a provider error with body", func(t *testing.T) {
		t.Parallel()

		srv, _ := newProvider(t, http.StatusUnauthorized, "Forbidden")
		s := mailgun.New(mailgun.Config{Domain: "mg.example.com", APIKey: "wrong", BaseURL: srv.URL})

		err := s.Send(context.Background(), &mailer.Email{From: "a@mg.example.com", To: "b@x.com", Text: "t"})
		require.ErrorIs(t, err, mailer.ErrRejected)

		var pe *mailer.ProviderError
		require.ErrorAs(t, err, &pe)
		require.Equal(t, http.StatusUnauthorized, pe.StatusCode)
		require.Equal(t, "Forbidden", mailer.Detail(err))
	})

	t.Run("other 2xx statuses are not success", func(t *testing.T) {
		t.Parallel()

		srv, _ := newProvider(t, http.StatusAccepted, "accepted")
		s := mailgun.New(mailgun.Config{Domain: "mg.example.com", APIKey: "k", BaseURL: srv.URL})

		err := s.Send(context.Background(), &mailer.Email{From: "a@mg.example.com", To: "b@x.com", Text: "t"})
		require.ErrorIs(t, err, mailer.ErrRejected)
	})

	t.Run("transport failure", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		s := mailgun.New(mailgun.Config{Domain: "mg.example.com", APIKey: "k", BaseURL: srv.URL})
		err := s.Send(context.Background(), &mailer.Email{From: "a@mg.example.com", To: "b@x.com", Text: "t"})
		require.ErrorIs(t, err, mailer.ErrSendFailed)
		require.NotErrorIs(t, err, mailer.ErrRejected)
	})

	t.Run("missing domain", func(t *testing.T) {
		t.Parallel()

		s := mailgun.New(mailgun.Config{APIKey: "k"})
		err := s.Send(context.Background(), &mailer.Email{To: "b@x.com", Text: "t"})
		require.ErrorIs(t, err, mailgun.ErrMissingDomain)
	})

	t.Run("invalid email is rejected locally", func(t *testing.T) {
		t.Parallel()

		s := mailgun.New(mailgun.Config{Domain: "mg.example.com", APIKey: "k", BaseURL: "http://127.0.0.1:1"})
		err := s.Send(context.Background(), &mailer.Email{Text: "t"})
		require.ErrorIs(t, err, mailer.ErrNoRecipient)
	})
}

func TestSender_Endpoint(t *testing.T) {
	t.Parallel()

	s := mailgun.New(mailgun.Config{Domain: " mg.example.com "})
	require.Equal(t, "https://api.mailgun.net/v3/mg.example.com/messages", s.Endpoint())

	s = mailgun.New(mailgun.Config{Domain: "mg.example.com", BaseURL: "https://api.eu.mailgun.net/v3/"})
	require.Equal(t, "https://api.eu.mailgun.net/v3/mg.example.com/messages", s.Endpoint())
}
