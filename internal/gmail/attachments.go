package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mailgate/mailgate/pkg/models"
)

// fetchTimeout bounds a single attachment download.
const fetchTimeout = 30 * time.Second

// maxAttachmentSize caps a single downloaded attachment.
const maxAttachmentSize = 25 << 20 // Gmail's own message limit

type processedAttachment struct {
	Filename    string
	ContentType string
	Data        string // base64
}

var privateIPPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^10\.`),
	regexp.MustCompile(`^172\.(1[6-9]|2[0-9]|3[0-1])\.`),
	regexp.MustCompile(`^192\.168\.`),
	regexp.MustCompile(`^169\.254\.`),
	regexp.MustCompile(`^0\.`),
}

// isURLSafe refuses URLs that could reach internal services.
func isURLSafe(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	hostname := strings.ToLower(u.Hostname())
	if hostname == "localhost" || hostname == "127.0.0.1" || hostname == "::1" {
		return false
	}
	for _, pattern := range privateIPPatterns {
		if pattern.MatchString(hostname) {
			return false
		}
	}
	if strings.HasSuffix(hostname, ".local") || strings.HasSuffix(hostname, ".internal") {
		return false
	}
	return true
}

// processAttachments resolves each attachment to base64 content, downloading
// URL attachments with an SSRF guard and a bounded fetch.
func (c *Client) processAttachments(ctx context.Context, attachments models.AttachmentList) ([]processedAttachment, error) {
	if len(attachments) == 0 {
		return nil, nil
	}

	processed := make([]processedAttachment, 0, len(attachments))
	for _, att := range attachments {
		switch {
		case att.Base64 != "":
			contentType := att.ContentType
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			processed = append(processed, processedAttachment{
				Filename:    att.Filename,
				ContentType: contentType,
				Data:        att.Base64,
			})

		case att.URL != "":
			if !isURLSafe(att.URL) {
				return nil, fmt.Errorf("attachment URL %q is not allowed", att.URL)
			}
			p, err := c.download(ctx, att)
			if err != nil {
				return nil, err
			}
			processed = append(processed, p)

		default:
			return nil, fmt.Errorf("attachment %q has neither base64 nor url", att.Filename)
		}
	}
	return processed, nil
}

func (c *Client) download(ctx context.Context, att models.Attachment) (processedAttachment, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, att.URL, nil)
	if err != nil {
		return processedAttachment{}, fmt.Errorf("failed to build attachment request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return processedAttachment{}, fmt.Errorf("failed to download attachment from %s: %w", att.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return processedAttachment{}, fmt.Errorf("failed to download attachment from %s: status %d", att.URL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachmentSize))
	if err != nil {
		return processedAttachment{}, fmt.Errorf("failed to read attachment body: %w", err)
	}

	contentType := att.ContentType
	if contentType == "" {
		contentType = resp.Header.Get("Content-Type")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return processedAttachment{
		Filename:    att.Filename,
		ContentType: contentType,
		Data:        base64.StdEncoding.EncodeToString(data),
	}, nil
}
