package auth

import "context"

// Credentials are what the caller presented; they are forwarded unchanged
// to the backend on every outbound request made on the caller's behalf.
type Credentials struct {
	AccessToken string
	APIKey      string
}

// Empty reports whether no credential is set.
func (c Credentials) Empty() bool {
	return c.AccessToken == "" && c.APIKey == ""
}

type credentialsKey struct{}

func WithCredentials(ctx context.Context, c Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey{}, c)
}

func CredentialsFromContext(ctx context.Context) (Credentials, bool) {
	c, ok := ctx.Value(credentialsKey{}).(Credentials)
	if !ok || c.Empty() {
		return Credentials{}, false
	}
	return c, true
}
