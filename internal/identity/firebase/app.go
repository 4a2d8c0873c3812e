package firebase

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/firestore"
	firebasesdk "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Credentials selects the service account used by the Firebase SDK
type Credentials struct {
	// ServiceAccount is the JSON key, raw or base64 encoded
	ServiceAccount string
	// ServiceAccountFile is read when ServiceAccount is empty
	ServiceAccountFile string
	// ProjectID overrides the project_id found in the key
	ProjectID string
}

// App holds the Firebase clients the gateway uses
type App struct {
	ProjectID string
	Auth      *auth.Client
	app       *firebasesdk.App
}

// NewApp initialises the Firebase SDK and its Auth client
func NewApp(ctx context.Context, creds Credentials) (*App, error) {
	key, err := creds.load()
	if err != nil {
		return nil, err
	}

	projectID := creds.ProjectID
	if projectID == "" {
		projectID, err = projectIDFromKey(key)
		if err != nil {
			return nil, err
		}
	}

	app, err := firebasesdk.NewApp(ctx, &firebasesdk.Config{ProjectID: projectID}, option.WithCredentialsJSON(key))
	if err != nil {
		return nil, fmt.Errorf("firebase: init app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: init auth client: %w", err)
	}

	return &App{ProjectID: projectID, Auth: authClient, app: app}, nil
}

// Firestore opens a Firestore client for the same project. The caller closes it.
func (a *App) Firestore(ctx context.Context) (*firestore.Client, error) {
	client, err := a.app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: init firestore: %w", err)
	}
	return client, nil
}

func (c Credentials) load() ([]byte, error) {
	raw := strings.TrimSpace(c.ServiceAccount)
	if raw == "" && c.ServiceAccountFile != "" {
		b, err := os.ReadFile(c.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("firebase: read service account file: %w", err)
		}
		raw = strings.TrimSpace(string(b))
	}
	if raw == "" {
		return nil, fmt.Errorf("firebase: service account is not configured")
	}
	return DecodeServiceAccount(raw)
}

// DecodeServiceAccount accepts a JSON key as-is or base64 encoded
func DecodeServiceAccount(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "{") {
		if !json.Valid([]byte(raw)) {
			return nil, fmt.Errorf("firebase: service account is not valid JSON")
		}
		return []byte(raw), nil
	}

	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("firebase: service account is neither JSON nor base64: %w", err)
	}
	if !json.Valid(decoded) {
		return nil, fmt.Errorf("firebase: decoded service account is not valid JSON")
	}
	return decoded, nil
}

func projectIDFromKey(key []byte) (string, error) {
	var sa struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(key, &sa); err != nil {
		return "", fmt.Errorf("firebase: parse service account: %w", err)
	}
	if sa.ProjectID == "" {
		return "", fmt.Errorf("firebase: service account has no project_id")
	}
	return sa.ProjectID, nil
}
