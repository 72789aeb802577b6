package dangdoc

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dang-doctor/doctor-fe/internal/config"
	"github.com/dang-doctor/doctor-fe/internal/logutil"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect dangdoc configuration",
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show effective configuration (secrets redacted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path, err := resolveDBPath()
		if err != nil {
			return err
		}
		values := configValues(cfg)
		values["DB_PATH"] = path

		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(cmd.OutOrStdout(), "KEY\tVALUE")
		for _, k := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "%s%s\t%s\n", config.Prefix, k, values[k])
		}
		return nil
	},
}

func configValues(cfg config.Config) map[string]string {
	return map[string]string{
		"API_BASE_URL":         cfg.APIBaseURL,
		"HTTP_TIMEOUT":         cfg.HTTPTimeout.String(),
		"KAKAO_LOGIN_URL":      cfg.KakaoLoginURL,
		"KAKAO_REDIRECT_URI":   cfg.KakaoRedirectURI,
		"KAKAO_CLIENT_ID":      cfg.KakaoClientID,
		"KAKAO_EXCHANGE_URL":   cfg.ExchangeURL(),
		"FIREBASE_API_KEY":     logutil.Redact(cfg.FirebaseAPIKey),
		"FIREBASE_AUTH_URL":    cfg.FirebaseAuthURL,
		"FIREBASE_TOKEN_URL":   cfg.FirebaseTokenURL,
		"STORAGE":              cfg.Storage,
		"REDIS_URL":            cfg.RedisURL,
		"LOOKUP_CONCURRENCY":   strconv.Itoa(cfg.LookupConcurrency),
		"NUTRITION_CACHE_TTL":  cfg.NutritionCacheTTL.String(),
		"NUTRITION_FALLBACK":   cfg.NutritionFallback,
		"OPENFOODFACTS_URL":    cfg.OpenFoodFactsURL,
		"TOKEN_FRESHNESS_SKEW": cfg.TokenFreshnessSkew.String(),
		"LOG_LEVEL":            cfg.LogLevel,
		"LOG_FORMAT":           cfg.LogFormat,
	}
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGetCmd)
}
