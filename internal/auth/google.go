package auth

import (
	"context"
	"strings"

	"vodworks/internal/pkg/errors"

	"golang.org/x/oauth2"
	oauth2v2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// GoogleUserInfo is the subset of the Google userinfo response we act on.
type GoogleUserInfo struct {
	ID            string
	Email         string
	VerifiedEmail bool
	Name          string
	Picture       string
}

// VerifyGoogleToken resolves a Google OAuth access token to the account it
// belongs to. Invalid or expired tokens come back as UNAUTHORIZED.
func VerifyGoogleToken(ctx context.Context, accessToken string) (*GoogleUserInfo, error) {
	svc, err := oauth2v2.NewService(ctx,
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})))
	if err != nil {
		return nil, errors.Wrap(err, "auth.VerifyGoogleToken", "create oauth2 service")
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, errors.New(errors.CodeUnauthorized, "invalid google token")
	}
	if info.Email == "" {
		return nil, errors.New(errors.CodeUnauthorized, "google token has no email")
	}

	out := &GoogleUserInfo{
		ID:      info.Id,
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	}
	if info.VerifiedEmail != nil {
		out.VerifiedEmail = *info.VerifiedEmail
	}
	return out, nil
}

// UsernameFromEmail derives a username for accounts created via Google
// sign-in: the mailbox part with dots and plus signs flattened, marked with
// a _google suffix.
func UsernameFromEmail(email string) string {
	name, _, _ := strings.Cut(email, "@")
	if name == "" {
		name = "user"
	}
	name = strings.ReplaceAll(name, ".", "_")
	name = strings.ReplaceAll(name, "+", "_")
	return name + "_google"
}
