package telegram

import (
	"strings"
	"time"

	"github.com/mailgate/mailgate/internal/approval"
	"github.com/mailgate/mailgate/pkg/models"
)

func promptText(req *models.EmailRequest) string {
	var sb strings.Builder
	if req.ThreadID != nil {
		sb.WriteString("📧 Reply in Thread — Approval Request\n\n")
	} else {
		sb.WriteString("📧 Email Approval Request\n\n")
	}
	writeDetails(&sb, req, false)
	return sb.String()
}

func resolutionText(req *models.EmailRequest, outcome approval.Outcome, detail string) string {
	var sb strings.Builder
	switch outcome {
	case approval.OutcomeSent:
		sb.WriteString("✅ APPROVED — Email sent successfully\n")
	case approval.OutcomeDeclined:
		sb.WriteString("❌ DECLINED — Email not sent\n")
	case approval.OutcomeFailed:
		sb.WriteString("⚠️ SEND FAILED\n")
		sb.WriteString("Error: " + detail + "\n")
	}
	sb.WriteString("Resolved: " + time.Now().UTC().Format(time.RFC3339) + "\n")
	sb.WriteString("─────────────────────\n")
	writeDetails(&sb, req, true)
	return sb.String()
}

// writeDetails renders the request summary; the full variant used in
// resolution edits also shows BCC and the thread marker.
func writeDetails(sb *strings.Builder, req *models.EmailRequest, full bool) {
	if full && req.ThreadID != nil {
		sb.WriteString("↩️ Reply in thread\n")
	}
	sb.WriteString("To: " + strings.Join(req.ToAddresses, ", ") + "\n")
	if len(req.CcAddresses) > 0 {
		sb.WriteString("CC: " + strings.Join(req.CcAddresses, ", ") + "\n")
	}
	if full && len(req.BccAddresses) > 0 {
		sb.WriteString("BCC: " + strings.Join(req.BccAddresses, ", ") + "\n")
	}
	sb.WriteString("Subject: " + req.Subject + "\n\n")
	sb.WriteString("Body:\n" + req.Body)

	if len(req.Attachments) > 0 {
		names := make([]string, len(req.Attachments))
		for i, att := range req.Attachments {
			names[i] = att.Filename
		}
		sb.WriteString("\n\n📎 Attachments: " + strings.Join(names, ", "))
	}
}
