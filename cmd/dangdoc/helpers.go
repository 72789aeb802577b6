package dangdoc

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dang-doctor/doctor-fe/internal/api"
	"github.com/dang-doctor/doctor-fe/internal/app"
	"github.com/dang-doctor/doctor-fe/internal/config"
	"github.com/dang-doctor/doctor-fe/internal/db"
	"github.com/dang-doctor/doctor-fe/internal/identity"
	"github.com/dang-doctor/doctor-fe/internal/kv"
	"github.com/dang-doctor/doctor-fe/internal/login"
	"github.com/dang-doctor/doctor-fe/internal/logutil"
	"github.com/dang-doctor/doctor-fe/internal/session"
)

const (
	redisKeyPrefix = "dangdoc:"
	flushTimeout   = 5 * time.Second
)

// appEnv is everything a command needs once config and storage are open.
type appEnv struct {
	cfg     config.Config
	logger  *slog.Logger
	db      *sql.DB
	kv      kv.Store
	session *session.Store
	api     *api.Client
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(app.DefaultEnvFiles()...)
	if err != nil {
		return config.Config{}, err
	}
	if apiURL != "" {
		cfg.APIBaseURL = apiURL
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

func withDB(run func(*sql.DB) error) error {
	path, err := resolveDBPath()
	if err != nil {
		return err
	}
	if err := app.EnsureDBDir(path); err != nil {
		return err
	}
	sqldb, err := db.Open(path)
	if err != nil {
		return err
	}
	defer sqldb.Close()

	if err := db.ApplyMigrations(sqldb); err != nil {
		return err
	}
	return run(sqldb)
}

// withEnv opens the database, the session storage backend and the
// session itself, runs fn, then waits for pending session writes.
func withEnv(cmd *cobra.Command, run func(*appEnv) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logutil.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	ctx := cmd.Context()

	return withDB(func(sqldb *sql.DB) error {
		store, closeStore, err := openKV(ctx, cfg, sqldb)
		if err != nil {
			return err
		}
		defer closeStore()

		httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
		client := &api.Client{BaseURL: cfg.APIBaseURL, HTTPClient: httpClient, Logger: logger}

		opts := []session.Option{
			session.WithLogger(logger),
			session.WithTokenIssuer(client),
			session.WithCodeExchanger(&login.Exchanger{
				URL:         cfg.ExchangeURL(),
				RedirectURI: cfg.KakaoRedirectURI,
				HTTPClient:  httpClient,
			}),
			session.WithFreshnessSkew(cfg.TokenFreshnessSkew),
		}
		if cfg.FirebaseAPIKey != "" {
			opts = append(opts, session.WithIdentityProvider(&identity.Client{
				APIKey:     cfg.FirebaseAPIKey,
				AuthURL:    cfg.FirebaseAuthURL,
				TokenURL:   cfg.FirebaseTokenURL,
				HTTPClient: httpClient,
			}))
		}
		sess := session.New(store, opts...)
		sess.Load(ctx)
		client.Tokens = sess

		rt := &appEnv{cfg: cfg, logger: logger, db: sqldb, kv: store, session: sess, api: client}
		runErr := run(rt)

		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
		defer cancel()
		if err := sess.Flush(flushCtx); err != nil {
			logger.Warn("session writes did not finish", "err", err)
		}
		return runErr
	})
}

func openKV(ctx context.Context, cfg config.Config, sqldb *sql.DB) (kv.Store, func(), error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return kv.NewMemory(), func() {}, nil
	case config.StorageRedis:
		client, err := kv.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return kv.NewRedis(client, redisKeyPrefix), func() { _ = client.Close() }, nil
	default:
		return kv.NewSQLite(sqldb), func() {}, nil
	}
}

// requireLogin fails early when there is no session to act for.
func requireLogin(rt *appEnv) (session.Session, error) {
	cur, ok := rt.session.Current()
	if !ok {
		return session.Session{}, fmt.Errorf("%w: not logged in (run `dangdoc login`)", session.ErrAuthUnavailable)
	}
	return cur, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func parseInt64Arg(name, value string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, value)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be > 0", name)
	}
	return v, nil
}

func parseDateOrToday(date string) (time.Time, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local), nil
	}
	t, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q (expected YYYY-MM-DD)", date)
	}
	return t, nil
}

// parseClockOn returns day at the given HH:MM, or the current clock time on
// day when timeStr is empty.
func parseClockOn(day time.Time, timeStr string) (time.Time, error) {
	timeStr = strings.TrimSpace(timeStr)
	if timeStr == "" {
		now := time.Now()
		return time.Date(day.Year(), day.Month(), day.Day(), now.Hour(), now.Minute(), 0, 0, time.Local), nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", day.Format("2006-01-02")+" "+timeStr, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --time %q (expected HH:MM)", timeStr)
	}
	return t, nil
}

func formatValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
