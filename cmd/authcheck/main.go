// Command authcheck sends a provider token to a running gateway and prints
// the response envelope. It is a manual smoke test for deployments.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"auth-gateway/internal/domain"
)

type envelope struct {
	OK           bool   `json:"ok"`
	Message      string `json:"message"`
	CustomToken  string `json:"customToken"`
	IsNewAccount *bool  `json:"isNewAccount"`
	Error        string `json:"error"`
	User         *struct {
		UID   string `json:"uid"`
		Email string `json:"email"`
	} `json:"user"`
}

// loginRequest builds the body for a social route
func loginRequest(raw, token string) (string, []byte, error) {
	provider, err := domain.ParseProvider(raw)
	if err != nil {
		return "", nil, err
	}

	var field string
	switch provider {
	case domain.ProviderGoogle:
		field = "idToken"
	case domain.ProviderKakao:
		field = "accessToken"
	default:
		return "", nil, fmt.Errorf("provider %q has no social route (google|kakao)", provider)
	}
	body, err := json.Marshal(map[string]string{field: token})
	return "/" + string(provider), body, err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	var (
		baseURL = envOr("AUTH_GATEWAY_URL", "http://localhost:4000/auth")
		token   string
		timeout = 15 * time.Second
	)

	root := &cobra.Command{
		Use:   "authcheck <google|kakao>",
		Short: "Log in through a running auth gateway with a provider token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				return fmt.Errorf("a provider token is required (--token or AUTH_PROVIDER_TOKEN)")
			}
			path, body, err := loginRequest(args[0], token)
			if err != nil {
				return err
			}

			client := &http.Client{Timeout: timeout}
			resp, err := client.Post(strings.TrimRight(baseURL, "/")+path, "application/json", bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("send request: %w", err)
			}
			defer resp.Body.Close()

			raw, _ := io.ReadAll(resp.Body)
			fmt.Printf("Status: %d\n", resp.StatusCode)

			var env envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				fmt.Printf("Response: %s\n", string(raw))
				return fmt.Errorf("response is not an envelope: %w", err)
			}

			if !env.OK {
				fmt.Printf("❌ %s: %s\n", env.Message, env.Error)
				return fmt.Errorf("login failed with status %d", resp.StatusCode)
			}

			fmt.Printf("✅ %s\n", env.Message)
			if env.User != nil {
				fmt.Printf("uid=%s email=%s\n", env.User.UID, env.User.Email)
			}
			if env.IsNewAccount != nil {
				fmt.Printf("isNewAccount=%t\n", *env.IsNewAccount)
			}
			fmt.Printf("customToken=%d bytes\n", len(env.CustomToken))
			return nil
		},
		SilenceUsage: true,
	}
	root.Flags().StringVar(&baseURL, "url", baseURL, "Gateway base URL including the route prefix (env AUTH_GATEWAY_URL)")
	root.Flags().StringVar(&token, "token", os.Getenv("AUTH_PROVIDER_TOKEN"), "Google ID token or Kakao access token (env AUTH_PROVIDER_TOKEN)")
	root.Flags().DurationVar(&timeout, "timeout", timeout, "Request timeout")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
