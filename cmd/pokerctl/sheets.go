package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"pokertracker/internal/cli"
	"pokertracker/internal/config"
	gsheet "pokertracker/internal/sheets/google"
)

type sheetsAuthOptions struct {
	port      int
	tokenFile string
	timeout   time.Duration
}

// newSheetsAuthCmd runs the OAuth consent flow once and stores the user
// token the sync worker uses when GOOGLE_OAUTH_TOKEN_FILE is set.
func newSheetsAuthCmd() *cobra.Command {
	o := &sheetsAuthOptions{}
	cmd := &cobra.Command{
		Use:   "sheets-auth",
		Short: "Authorize the Google Sheets mirror with a user account",
		Long: `sheets-auth reads the OAuth client secret from GOOGLE_CREDENTIALS_FILE or
GOOGLE_CREDENTIALS_JSON, prints a consent URL and waits for Google to redirect
to http://localhost:<port>/callback. Add that URI to the OAuth client first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.LoadEnvFile(); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return o.run(cmd, cfg)
		},
	}
	cmd.Flags().IntVar(&o.port, "port", 8085, "local port for the OAuth redirect")
	cmd.Flags().StringVar(&o.tokenFile, "token-file", "", "where to save the token (default GOOGLE_OAUTH_TOKEN_FILE or token.json)")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 5*time.Minute, "how long to wait for consent")
	return cmd
}

func (o *sheetsAuthOptions) run(cmd *cobra.Command, cfg *config.Config) error {
	clientJSON, err := oauthClientSecret(cfg)
	if err != nil {
		return err
	}
	redirectURL := fmt.Sprintf("http://localhost:%d/callback", o.port)
	oauthCfg, err := gsheet.OAuthConfig(clientJSON, redirectURL)
	if err != nil {
		return err
	}

	tokenFile := o.tokenFile
	if tokenFile == "" {
		tokenFile = cfg.GoogleOAuthTokenFile
	}
	if tokenFile == "" {
		tokenFile = "token.json"
	}

	state := uuid.NewString()
	codes := make(chan string, 1)
	errs := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "OAuth error: "+q.Get("error"), http.StatusBadRequest)
			select {
			case errs <- fmt.Errorf("authorization denied: %s", q.Get("error")):
			default:
			}
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
		default:
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
			select {
			case codes <- q.Get("code"):
			default:
			}
		}
	})

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", o.port))
	if err != nil {
		return fmt.Errorf("listen for oauth redirect: %w", err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Open this URL to authorize:\n%s\n",
		oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))

	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()

	select {
	case code := <-codes:
		tok, err := oauthCfg.Exchange(ctx, code)
		if err != nil {
			return fmt.Errorf("token exchange: %w", err)
		}
		if err := gsheet.SaveToken(tokenFile, tok); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved token to %s\nSet GOOGLE_OAUTH_TOKEN_FILE=%s for the worker.\n", tokenFile, tokenFile)
		return nil
	case err := <-errs:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errors.New("authorization timed out")
		}
		return errors.New("interrupted")
	}
}

func oauthClientSecret(cfg *config.Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.GoogleCredentialsJSON) != "":
		return []byte(cfg.GoogleCredentialsJSON), nil
	case cfg.GoogleCredentialsFile != "":
		data, err := os.ReadFile(cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read oauth client file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("set GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON to the OAuth client secret")
	}
}
