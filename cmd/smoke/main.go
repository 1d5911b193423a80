// smoke drives one full handoff against a running auth service: it logs in,
// captures the token from the redirect and redeems it twice.
// Run: AUTH_SYSTEM_API_KEY=... go run ./cmd/smoke --username admin1
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ErlanBelekov/sso-handoff/internal/authclient"
	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"
)

type smokeConfig struct {
	AuthURL   string `env:"AUTH_SYSTEM_URL"     envDefault:"http://localhost:9000"`
	APIKey    string `env:"AUTH_SYSTEM_API_KEY,required"`
	ReturnURL string `env:"RETURN_URL"          envDefault:"http://localhost:8080/dashboard"`
	Username  string `env:"SMOKE_USERNAME"      envDefault:"user1"`
	Password  string `env:"SMOKE_PASSWORD"      envDefault:"password1"`
}

func main() {
	var cfg smokeConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("config: %v", err)
	}
	pflag.StringVar(&cfg.AuthURL, "auth-url", cfg.AuthURL, "auth service base URL")
	pflag.StringVar(&cfg.ReturnURL, "return-url", cfg.ReturnURL, "return URL to request a token for (must be allow-listed)")
	pflag.StringVarP(&cfg.Username, "username", "u", cfg.Username, "login username")
	pflag.StringVarP(&cfg.Password, "password", "p", cfg.Password, "login password")
	pflag.Parse()
	cfg.AuthURL = strings.TrimRight(cfg.AuthURL, "/")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tok, dest, err := login(ctx, cfg)
	if err != nil {
		log.Fatalf("login: %v", err)
	}

	fmt.Println("Login complete")
	fmt.Println()
	fmt.Printf("  User:        %s\n", cfg.Username)
	fmt.Printf("  Redirected:  %s\n", dest)
	fmt.Printf("  Token:       %s...\n", tok[:min(8, len(tok))])
	fmt.Println()

	client := authclient.New(cfg.AuthURL, cfg.APIKey, 5*time.Second)
	for i, label := range []string{"first", "second"} {
		resp, err := client.Validate(ctx, tok)
		if err != nil {
			log.Fatalf("%s redemption: %v", label, err)
		}
		body, _ := json.Marshal(resp)
		fmt.Printf("  Redemption %d: %s\n", i+1, body)
	}

	fmt.Println()
	fmt.Println("Expected: valid on the first redemption, TOKEN_ALREADY_USED on the second.")
}

// login posts the form with the return URL pre-stored, as the login page
// would have done, and reads the token off the handoff redirect.
func login(ctx context.Context, cfg smokeConfig) (string, string, error) {
	form := url.Values{"username": {cfg.Username}, "password": {cfg.Password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.AuthURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", cfg.AuthURL)
	req.AddCookie(&http.Cookie{Name: "sso_redirect", Value: url.QueryEscape(cfg.ReturnURL)})

	client := &http.Client{
		Timeout: 10 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("do request: %w", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		return "", "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	dest, err := url.Parse(loc)
	if err != nil {
		return "", "", fmt.Errorf("parse location %q: %w", loc, err)
	}
	tok := dest.Query().Get("token")
	if tok == "" {
		if strings.Contains(loc, "error") {
			return "", "", errors.New("credentials rejected")
		}
		fmt.Fprintf(os.Stderr, "no token in redirect to %q: is %s on the allow-list?\n", loc, cfg.ReturnURL)
		return "", "", errors.New("no token issued")
	}
	return tok, loc, nil
}
