package dangdoc

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dang-doctor/doctor-fe/internal/db"
	"github.com/dang-doctor/doctor-fe/internal/kv"
	"github.com/dang-doctor/doctor-fe/internal/logutil"
	"github.com/dang-doctor/doctor-fe/internal/nutrition"
)

var doctorOnline bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check local storage, session and (with --online) token refresh",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(rt *appEnv) error {
			out := cmd.OutOrStdout()
			issues := 0

			version, err := db.SchemaVersion(rt.db)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Schema version: %d\n", version)
			fmt.Fprintf(out, "Session storage: %s\n", rt.cfg.Storage)

			if lister, ok := rt.kv.(interface {
				Keys(ctx context.Context) ([]string, error)
			}); ok {
				keys, err := lister.Keys(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Stored keys: %d\n", len(keys))
			}

			cached, err := nutrition.NewCache(rt.db, rt.cfg.NutritionCacheTTL).Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Cached nutrition rows: %d\n", cached)

			cur, ok := rt.session.Current()
			if !ok {
				fmt.Fprintln(out, "Session: not logged in")
				issues++
			} else {
				fmt.Fprintf(out, "Session: user %q, token %s\n", cur.UserID, logutil.Redact(cur.PrimaryToken))
				if _, found, err := rt.kv.Get(cmd.Context(), kv.AccessTokenKey); err != nil {
					return err
				} else if !found {
					fmt.Fprintln(out, "Stored access token: missing")
					issues++
				}
			}

			if doctorOnline && ok {
				res := rt.session.RefreshToken(cmd.Context())
				fmt.Fprintf(out, "Token refresh: %s\n", res.Source)
				if !res.OK() {
					issues++
				}
			}

			if issues > 0 {
				return fmt.Errorf("doctor found %d issue(s)", issues)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorOnline, "online", false, "Also try to produce a token through the refresh chain")
}
