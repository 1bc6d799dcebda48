package gmail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/mailgate/mailgate/internal/approval"
	"github.com/mailgate/mailgate/pkg/models"
)

// Client is the Gmail send gateway. It holds the OAuth application
// credentials; per-user refresh tokens are passed per call.
type Client struct {
	oauth  *oauth2.Config
	http   *http.Client // attachment downloads
	logger *slog.Logger
}

// NewClient creates a Gmail client for the given OAuth application.
func NewClient(clientID, clientSecret, redirectURI string, logger *slog.Logger) *Client {
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       []string{gmailapi.GmailSendScope, gmailapi.GmailReadonlyScope},
			Endpoint:     google.Endpoint,
		},
		http:   &http.Client{},
		logger: logger.With("component", "gmail"),
	}
}

// Send builds the RFC 2822 message for the request and submits it through
// the Gmail API on behalf of the refresh token's owner. Expired or revoked
// authorizations come back wrapped in approval.ErrAuthExpired.
func (c *Client) Send(ctx context.Context, req *models.EmailRequest, refreshToken string) error {
	ts := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	svc, err := gmailapi.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return fmt.Errorf("failed to create gmail service: %w", err)
	}

	attachments, err := c.processAttachments(ctx, req.Attachments)
	if err != nil {
		return fmt.Errorf("failed to process attachments: %w", err)
	}

	msg := &gmailapi.Message{Raw: encodeRaw(buildMIME(req, attachments, newBoundary()))}
	if req.ThreadID != nil {
		msg.ThreadId = *req.ThreadID
	}

	if _, err := svc.Users.Messages.Send("me", msg).Context(ctx).Do(); err != nil {
		return classify(err)
	}
	return nil
}

// classify maps provider errors onto the gateway's failure taxonomy.
func classify(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode == "invalid_grant" {
		return fmt.Errorf("%w: %v", approval.ErrAuthExpired, err)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
		return fmt.Errorf("%w: %v", approval.ErrAuthExpired, err)
	}
	return fmt.Errorf("failed to send email: %w", err)
}
