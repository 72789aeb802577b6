package dangdoc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/dang-doctor/doctor-fe/internal/login"
	"github.com/dang-doctor/doctor-fe/internal/logutil"
	"github.com/dang-doctor/doctor-fe/internal/session"
)

var (
	loginToken         string
	loginCode          string
	loginRedirect      string
	loginUserID        string
	loginFirebaseToken string
	loginNickname      string
	loginPrintURL      bool
	loginTimeout       time.Duration
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with Kakao (browser callback, code, token or pasted redirect URL)",
	Long: "Without flags, login prints the Kakao login URL and waits for the browser to come back on the " +
		"configured redirect URI. --token, --code and --redirect skip the browser.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(rt *appEnv) error {
			lc := login.Config{
				LoginURL:    rt.cfg.KakaoLoginURL,
				RedirectURI: rt.cfg.KakaoRedirectURI,
				ClientID:    rt.cfg.KakaoClientID,
			}
			creds := session.Credentials{
				Token:         loginToken,
				Code:          loginCode,
				UserID:        loginUserID,
				FirebaseToken: loginFirebaseToken,
				Nickname:      loginNickname,
			}

			switch {
			case creds.Token != "" || creds.Code != "":
			case loginRedirect != "":
				r, ok, err := login.ParseRedirect(loginRedirect, lc.RedirectURI)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("--redirect does not point at %s", lc.RedirectURI)
				}
				if err := r.Err(); err != nil {
					return err
				}
				creds.Token, creds.Code = r.Token, r.Code
			default:
				authURL, state, err := lc.AuthCodeURL()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Open this URL to log in:\n%s\n", authURL)
				if loginPrintURL {
					return nil
				}
				r, err := waitForBrowser(cmd.Context(), lc.RedirectURI, state)
				if err != nil {
					return err
				}
				creds.Token, creds.Code = r.Token, r.Code
			}

			if err := rt.session.Login(cmd.Context(), creds); err != nil {
				return err
			}
			cur, _ := rt.session.Current()
			if cur.UserID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", cur.UserID)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Logged in")
			}
			return nil
		})
	},
}

func waitForBrowser(ctx context.Context, redirectURI, state string) (login.Redirect, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return login.Redirect{}, fmt.Errorf("parse redirect uri: %w", err)
	}
	if u.Scheme != "http" {
		return login.Redirect{}, fmt.Errorf("redirect URI %s is not a local http address; use --redirect or --code", redirectURI)
	}
	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return login.Redirect{}, fmt.Errorf("listen for login callback: %w", err)
	}
	defer ln.Close()

	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()
	r, err := login.WaitForCallback(ctx, ln, redirectURI, state)
	if errors.Is(err, context.DeadlineExceeded) {
		return r, fmt.Errorf("no login callback within %s", loginTimeout)
	}
	return r, err
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(rt *appEnv) error {
			rt.session.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		})
	},
}

var whoamiJSON bool

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(rt *appEnv) error {
			cur, err := requireLogin(rt)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if whoamiJSON {
				return writeJSON(out, map[string]any{
					"user_id":        cur.UserID,
					"nickname":       cur.Nickname,
					"access_token":   logutil.Redact(cur.PrimaryToken),
					"firebase_token": logutil.Redact(cur.FirebaseToken),
					"id_token":       logutil.Redact(cur.IDToken),
					"prefs":          cur.Preferences,
					"updated_at":     cur.UpdatedAt,
				})
			}
			fmt.Fprintf(out, "User: %s\n", orDash(cur.UserID))
			fmt.Fprintf(out, "Nickname: %s\n", orDash(cur.Nickname))
			fmt.Fprintf(out, "Access token: %s\n", orDash(logutil.Redact(cur.PrimaryToken)))
			if cur.IDToken != "" {
				fmt.Fprintf(out, "ID token expires: %s\n", cur.IDTokenExpiry.Local().Format(time.RFC3339))
			}
			return nil
		})
	},
}

var tokenShow bool

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Produce a bearer token through the refresh chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(rt *appEnv) error {
			if _, err := requireLogin(rt); err != nil {
				return err
			}
			res := rt.session.RefreshToken(cmd.Context())
			if !res.OK() {
				if res.Err != nil {
					return fmt.Errorf("%w: %w", session.ErrAuthUnavailable, res.Err)
				}
				return session.ErrAuthUnavailable
			}
			token := logutil.Redact(res.Token)
			if tokenShow {
				token = res.Token
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Source: %s\nToken: %s\n", res.Source, token)
			return nil
		})
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, tokenCmd)

	loginCmd.Flags().StringVar(&loginToken, "token", "", "Backend access token")
	loginCmd.Flags().StringVar(&loginCode, "code", "", "One-time authorization code to exchange")
	loginCmd.Flags().StringVar(&loginRedirect, "redirect", "", "Redirect URL the browser landed on")
	loginCmd.Flags().StringVar(&loginUserID, "user-id", "", "User id (when not carried by the login payload)")
	loginCmd.Flags().StringVar(&loginFirebaseToken, "firebase-token", "", "Custom identity token to sign in with")
	loginCmd.Flags().StringVar(&loginNickname, "nickname", "", "Display name")
	loginCmd.Flags().BoolVar(&loginPrintURL, "print-url", false, "Only print the login URL")
	loginCmd.Flags().DurationVar(&loginTimeout, "timeout", 5*time.Minute, "How long to wait for the browser callback")

	whoamiCmd.Flags().BoolVar(&whoamiJSON, "json", false, "Output JSON")
	tokenCmd.Flags().BoolVar(&tokenShow, "show", false, "Print the full token")
}
