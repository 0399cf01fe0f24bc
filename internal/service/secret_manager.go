package service

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// SecretResolver reads secret payloads from Google Secret Manager.
type SecretResolver interface {
	Resolve(ctx context.Context, name string) (string, error)
	Close() error
}

type secretResolver struct {
	client    *secretmanager.Client
	projectID string
}

func NewSecretResolver(ctx context.Context, projectID string, opts ...option.ClientOption) (SecretResolver, error) {
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	return &secretResolver{client: client, projectID: projectID}, nil
}

// Resolve accepts a full version resource name or a bare secret id, which is
// read at its latest version in the configured project.
func (s *secretResolver) Resolve(ctx context.Context, name string) (string, error) {
	resource, err := secretVersionName(s.projectID, name)
	if err != nil {
		return "", err
	}
	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: resource})
	if err != nil {
		return "", fmt.Errorf("failed to access secret version %s: %w", resource, err)
	}
	return string(result.Payload.Data), nil
}

func (s *secretResolver) Close() error {
	return s.client.Close()
}

func secretVersionName(projectID, name string) (string, error) {
	switch {
	case strings.HasPrefix(name, "projects/") && strings.Contains(name, "/versions/"):
		return name, nil
	case strings.HasPrefix(name, "projects/"):
		return name + "/versions/latest", nil
	case projectID == "":
		return "", fmt.Errorf("secret %q needs a GCP project id", name)
	default:
		return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", projectID, name), nil
	}
}
