package gmail

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/mailgate/mailgate/pkg/models"
)

func newBoundary() string {
	return fmt.Sprintf("boundary_%d", time.Now().UnixNano())
}

// buildMIME assembles the raw RFC 2822 message: plain or HTML body, optional
// threading headers, and a multipart/mixed wrapper when attachments are
// present.
func buildMIME(req *models.EmailRequest, attachments []processedAttachment, boundary string) string {
	var sb strings.Builder

	sb.WriteString("To: " + strings.Join(req.ToAddresses, ", ") + "\r\n")
	if len(req.CcAddresses) > 0 {
		sb.WriteString("Cc: " + strings.Join(req.CcAddresses, ", ") + "\r\n")
	}
	if len(req.BccAddresses) > 0 {
		sb.WriteString("Bcc: " + strings.Join(req.BccAddresses, ", ") + "\r\n")
	}
	if req.InReplyTo != nil {
		sb.WriteString("In-Reply-To: " + *req.InReplyTo + "\r\n")
	}
	if len(req.References) > 0 {
		sb.WriteString("References: " + strings.Join(req.References, " ") + "\r\n")
	}
	sb.WriteString("Subject: " + req.Subject + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")

	bodyType := "text/plain"
	if req.IsHTML {
		bodyType = "text/html"
	}

	if len(attachments) == 0 {
		sb.WriteString("Content-Type: " + bodyType + `; charset="UTF-8"` + "\r\n\r\n")
		sb.WriteString(req.Body)
		return sb.String()
	}

	sb.WriteString(`Content-Type: multipart/mixed; boundary="` + boundary + `"` + "\r\n\r\n")
	sb.WriteString("--" + boundary + "\r\n")
	sb.WriteString("Content-Type: " + bodyType + `; charset="UTF-8"` + "\r\n\r\n")
	sb.WriteString(req.Body + "\r\n")

	for _, att := range attachments {
		sb.WriteString("--" + boundary + "\r\n")
		sb.WriteString(`Content-Type: ` + att.ContentType + `; name="` + att.Filename + `"` + "\r\n")
		sb.WriteString(`Content-Disposition: attachment; filename="` + att.Filename + `"` + "\r\n")
		sb.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
		sb.WriteString(att.Data + "\r\n")
	}
	sb.WriteString("--" + boundary + "--")

	return sb.String()
}

// encodeRaw encodes the message the way the Gmail API expects: URL-safe
// base64 without padding.
func encodeRaw(message string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(message))
}
