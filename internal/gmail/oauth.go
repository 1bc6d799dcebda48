package gmail

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// ErrNoRefreshToken is returned when Google's code exchange succeeds but
// yields no refresh token, which happens when consent was granted earlier.
var ErrNoRefreshToken = errors.New("no refresh token received")

// AuthURL returns the Google consent URL for connecting a user's Gmail
// account. The user id rides along as the OAuth state.
func (c *Client) AuthURL(userID string) string {
	return c.oauth.AuthCodeURL(userID,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange trades an authorization code for a refresh token and resolves the
// address of the connected mailbox.
func (c *Client) Exchange(ctx context.Context, code string) (refreshToken, email string, err error) {
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return "", "", fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if token.RefreshToken == "" {
		return "", "", ErrNoRefreshToken
	}

	svc, err := gmailapi.NewService(ctx, option.WithTokenSource(c.oauth.TokenSource(ctx, token)))
	if err != nil {
		return "", "", fmt.Errorf("failed to create gmail service: %w", err)
	}
	profile, err := svc.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch gmail profile: %w", err)
	}

	return token.RefreshToken, profile.EmailAddress, nil
}
