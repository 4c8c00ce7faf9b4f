package admob

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	admobapi "google.golang.org/api/admob/v1"
	"google.golang.org/api/option"
	htransport "google.golang.org/api/transport/http"
)

// CredentialSource says where the AdMob OAuth credentials live. The AdMob
// API does not accept plain service account identities for most accounts,
// so deployments usually store an authorized_user JSON with a refresh token.
type CredentialSource struct {
	// File is a path to a credentials JSON file.
	File string
	// Secret is a Secret Manager secret or secret version name.
	Secret string
}

// SecretAccessor reads secret payloads. *SecretCredentials implements it.
type SecretAccessor interface {
	AccessSecret(ctx context.Context, name string) ([]byte, error)
}

// SecretCredentials reads credentials from Secret Manager.
type SecretCredentials struct {
	client *secretmanager.Client
}

// NewSecretCredentials creates a Secret Manager backed SecretAccessor.
func NewSecretCredentials(ctx context.Context) (*SecretCredentials, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewSecretCredentials: creating client: %w", err)
	}
	return &SecretCredentials{client: client}, nil
}

// Close closes the Secret Manager client.
func (s *SecretCredentials) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// AccessSecret returns the payload of a secret version.
func (s *SecretCredentials) AccessSecret(ctx context.Context, name string) ([]byte, error) {
	resp, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: SecretVersionName(name),
	})
	if err != nil {
		return nil, fmt.Errorf("AccessSecret: %s: %w", name, err)
	}
	return resp.GetPayload().GetData(), nil
}

// SecretVersionName pins a bare secret name to its latest version.
func SecretVersionName(name string) string {
	if strings.Contains(name, "/versions/") {
		return name
	}
	return strings.TrimSuffix(name, "/") + "/versions/latest"
}

// LoadCredentialsJSON returns the credentials JSON for src, or nil when src
// is empty and Application Default Credentials should be used.
func LoadCredentialsJSON(ctx context.Context, src CredentialSource, secrets SecretAccessor) ([]byte, error) {
	switch {
	case src.File != "":
		data, err := os.ReadFile(src.File)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrAuth, src.File, err)
		}
		return data, nil
	case src.Secret != "":
		if secrets == nil {
			return nil, fmt.Errorf("%w: no secret accessor for %s", ErrAuth, src.Secret)
		}
		data, err := secrets.AccessSecret(ctx, src.Secret)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAuth, err)
		}
		return data, nil
	default:
		return nil, nil
	}
}

// NewHTTPClient returns an HTTP client authorized for the AdMob report scope.
func NewHTTPClient(ctx context.Context, src CredentialSource) (*http.Client, error) {
	var secrets SecretAccessor
	if src.File == "" && src.Secret != "" {
		sc, err := NewSecretCredentials(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAuth, err)
		}
		defer sc.Close()
		secrets = sc
	}

	data, err := LoadCredentialsJSON(ctx, src, secrets)
	if err != nil {
		return nil, err
	}

	if data == nil {
		client, _, err := htransport.NewClient(ctx, option.WithScopes(admobapi.AdmobReportScope))
		if err != nil {
			return nil, fmt.Errorf("%w: application default credentials: %v", ErrAuth, err)
		}
		return client, nil
	}

	creds, err := google.CredentialsFromJSON(ctx, data, admobapi.AdmobReportScope)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing credentials: %v", ErrAuth, err)
	}
	return oauth2.NewClient(ctx, creds.TokenSource), nil
}
