package gmail

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailgate/mailgate/pkg/models"
)

func TestIsURLSafe(t *testing.T) {
	tests := []struct {
		url  string
		safe bool
	}{
		{"https://example.com/file.pdf", true},
		{"http://files.example.org/a.txt", true},
		{"ftp://example.com/file", false},
		{"file:///etc/passwd", false},
		{"http://localhost/secret", false},
		{"http://127.0.0.1:8080/admin", false},
		{"http://[::1]/admin", false},
		{"http://10.0.0.5/internal", false},
		{"http://172.16.1.1/x", false},
		{"http://172.32.0.1/x", true}, // just outside 172.16.0.0/12
		{"http://192.168.1.1/x", false},
		{"http://169.254.169.254/latest/meta-data", false},
		{"http://0.0.0.0/", false},
		{"http://printer.local/x", false},
		{"http://db.internal/x", false},
		{"://not-a-url", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.safe, isURLSafe(tt.url))
		})
	}
}

func testClient() *Client {
	return NewClient("cid", "cs", "http://localhost/cb", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestProcessAttachmentsInline(t *testing.T) {
	c := testClient()

	got, err := c.processAttachments(context.Background(), models.AttachmentList{
		{Filename: "a.txt", ContentType: "text/plain", Base64: "aGk="},
		{Filename: "b.bin", Base64: "AAEC"},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "aGk=", got[0].Data)
	assert.Equal(t, "application/octet-stream", got[1].ContentType)
}

func TestProcessAttachmentsRejectsUnsafeURL(t *testing.T) {
	c := testClient()

	_, err := c.processAttachments(context.Background(), models.AttachmentList{
		{Filename: "x", URL: "http://169.254.169.254/creds"},
	})
	assert.ErrorContains(t, err, "not allowed")
}

func TestProcessAttachmentsRejectsEmptyDescriptor(t *testing.T) {
	c := testClient()

	_, err := c.processAttachments(context.Background(), models.AttachmentList{
		{Filename: "empty.txt"},
	})
	assert.ErrorContains(t, err, "neither base64 nor url")
}

func TestDownloadAttachment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	c := testClient()

	// httptest serves on 127.0.0.1, which the SSRF guard refuses; call the
	// download path directly.
	got, err := c.download(context.Background(), models.Attachment{Filename: "h.txt", URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "aGVsbG8=", got.Data)
	assert.Equal(t, "text/plain", got.ContentType)
}

func TestDownloadAttachmentNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient()
	_, err := c.download(context.Background(), models.Attachment{Filename: "x", URL: srv.URL})
	assert.ErrorContains(t, err, "status 404")
}
