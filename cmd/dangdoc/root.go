package dangdoc

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	dbPath  string
	apiURL  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "dangdoc",
	Short: "dangdoc records blood sugar and meals against the Dang-Doctor backend",
	Long: "dangdoc is a terminal client for Dang-Doctor: log in with Kakao, record blood sugar per time slot, " +
		"look up the nutrition of what you ate, and check your calorie target.",
	SilenceUsage: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite database")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend base URL (overrides DANGDOC_API_BASE_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
}
