package service

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// SecretRefPrefix marks a config value that names a Secret Manager secret instead of holding it.
const SecretRefPrefix = "sm://"

// SecretResolver reads secret payloads by reference.
type SecretResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

type secretManagerResolver struct {
	client    *secretmanager.Client
	projectID string
}

// NewSecretManagerResolver creates a resolver backed by GCP Secret Manager.
func NewSecretManagerResolver(ctx context.Context, projectID string, opts ...option.ClientOption) (SecretResolver, error) {
	if projectID == "" {
		return nil, fmt.Errorf("GCP Project ID is not set for the current environment")
	}
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	return &secretManagerResolver{client: client, projectID: projectID}, nil
}

// Resolve accepts "sm://name", "sm://name/versions/N" or a full "sm://projects/..." resource name.
func (s *secretManagerResolver) Resolve(ctx context.Context, ref string) (string, error) {
	req := &secretmanagerpb.AccessSecretVersionRequest{
		Name: SecretResourceName(s.projectID, ref),
	}
	result, err := s.client.AccessSecretVersion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to access secret version %s: %w", req.Name, err)
	}
	return string(result.Payload.Data), nil
}

// SecretResourceName expands a secret reference into a Secret Manager resource name.
func SecretResourceName(projectID, ref string) string {
	name := strings.TrimPrefix(ref, SecretRefPrefix)
	if strings.HasPrefix(name, "projects/") {
		return name
	}
	if !strings.Contains(name, "/versions/") {
		name += "/versions/latest"
	}
	return fmt.Sprintf("projects/%s/secrets/%s", projectID, name)
}

// ResolveSecrets replaces every sm:// value in fields with the referenced secret.
func ResolveSecrets(ctx context.Context, resolver SecretResolver, fields []*string) error {
	for _, f := range fields {
		if f == nil || !strings.HasPrefix(*f, SecretRefPrefix) {
			continue
		}
		val, err := resolver.Resolve(ctx, *f)
		if err != nil {
			return err
		}
		*f = val
	}
	return nil
}

// HasSecretRefs reports whether any field needs resolving.
func HasSecretRefs(fields []*string) bool {
	for _, f := range fields {
		if f != nil && strings.HasPrefix(*f, SecretRefPrefix) {
			return true
		}
	}
	return false
}
