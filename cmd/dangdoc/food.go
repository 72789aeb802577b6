package dangdoc

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dang-doctor/doctor-fe/internal/nutrition"
	"github.com/dang-doctor/doctor-fe/internal/provider/openfoodfacts"
)

var (
	foodJSON        bool
	foodNoCache     bool
	foodLookupTop   bool
	foodPurgeAll    bool
	foodConcurrency int
)

var foodCmd = &cobra.Command{
	Use:   "food",
	Short: "Look up nutrition facts and recognize food photos",
}

var foodLookupCmd = &cobra.Command{
	Use:   "lookup <food> [food...]",
	Short: "Look up and sum nutrition facts for one or more foods",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(rt *appEnv) error {
			if _, err := requireLogin(rt); err != nil {
				return err
			}
			agg, err := newNutritionService(cmd, rt).FetchAggregate(cmd.Context(), args)
			if err != nil {
				return err
			}
			if foodJSON {
				return writeJSON(cmd.OutOrStdout(), agg)
			}
			printAggregate(cmd.OutOrStdout(), agg)
			return nil
		})
	},
}

var foodPredictCmd = &cobra.Command{
	Use:   "predict <image>",
	Short: "Recognize the food in a photo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open image: %w", err)
		}
		defer f.Close()

		return withEnv(cmd, func(rt *appEnv) error {
			if _, err := requireLogin(rt); err != nil {
				return err
			}
			pred, err := rt.api.PredictFood(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			foods := pred.Foods()
			if len(foods) == 0 {
				return fmt.Errorf("no food recognized in %s", args[0])
			}
			if foodJSON && !foodLookupTop {
				return writeJSON(cmd.OutOrStdout(), pred.Candidates)
			}
			out := cmd.OutOrStdout()
			if !foodJSON {
				fmt.Fprintln(out, "RANK\tFOOD\tCONFIDENCE")
				for i, c := range pred.Candidates {
					fmt.Fprintf(out, "%d\t%s\t%.2f\n", i+1, c.FoodName, c.Confidence)
				}
			}
			if !foodLookupTop {
				return nil
			}
			agg, err := newNutritionService(cmd, rt).FetchAggregate(cmd.Context(), foods[:1])
			if err != nil {
				return err
			}
			if foodJSON {
				return writeJSON(out, map[string]any{"candidates": pred.Candidates, "nutrition": agg})
			}
			fmt.Fprintln(out)
			printAggregate(out, agg)
			return nil
		})
	},
}

var foodCacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local nutrition cache",
}

var foodCachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired (or with --all, every) cached nutrition row",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(rt *appEnv) error {
			n, err := nutrition.NewCache(rt.db, rt.cfg.NutritionCacheTTL).Purge(cmd.Context(), foodPurgeAll)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d cached row(s)\n", n)
			return nil
		})
	},
}

func newNutritionService(cmd *cobra.Command, rt *appEnv) *nutrition.Service {
	concurrency := rt.cfg.LookupConcurrency
	if cmd.Flags().Changed("concurrency") {
		concurrency = foodConcurrency
	}
	opts := []nutrition.Option{
		nutrition.WithLogger(rt.logger),
		nutrition.WithConcurrency(concurrency),
	}
	if !foodNoCache {
		opts = append(opts, nutrition.WithCache(nutrition.NewCache(rt.db, rt.cfg.NutritionCacheTTL)))
	}
	if rt.cfg.NutritionFallback == "openfoodfacts" {
		opts = append(opts, nutrition.WithFallback(nutrition.OpenFoodFacts(&openfoodfacts.Client{
			BaseURL: rt.cfg.OpenFoodFactsURL,
		})))
	}
	return nutrition.NewService(nutrition.Backend(rt.api), opts...)
}

func printAggregate(out io.Writer, agg nutrition.Aggregate) {
	fmt.Fprintln(out, "FOOD\tKCAL\tCARB(g)\tPROTEIN(g)\tFAT(g)\tSUGAR(g)\tSOURCE")
	for _, it := range agg.Items {
		source := string(it.Source)
		if it.Err != nil {
			source = "failed: " + firstLine(it.Err.Error())
		}
		fmt.Fprintf(out, "%s\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%s\n",
			it.Name, it.EnergyKcal, it.CarbohydrateG, it.ProteinG, it.FatG, it.SugarsG, source)
	}
	t := agg.Totals
	fmt.Fprintf(out, "TOTAL\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t\n", t.EnergyKcal, t.CarbohydrateG, t.ProteinG, t.FatG, t.SugarsG)
	if n := agg.Failed(); n > 0 {
		fmt.Fprintf(out, "%d of %d lookup(s) failed and count as zero\n", n, len(agg.Items))
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func init() {
	rootCmd.AddCommand(foodCmd)
	foodCmd.AddCommand(foodLookupCmd, foodPredictCmd, foodCacheCmd)
	foodCacheCmd.AddCommand(foodCachePurgeCmd)

	foodLookupCmd.Flags().BoolVar(&foodJSON, "json", false, "Output JSON")
	foodLookupCmd.Flags().BoolVar(&foodNoCache, "no-cache", false, "Skip the local nutrition cache")
	foodLookupCmd.Flags().IntVar(&foodConcurrency, "concurrency", 0, "Lookups in flight (default from DANGDOC_LOOKUP_CONCURRENCY)")

	foodPredictCmd.Flags().BoolVar(&foodJSON, "json", false, "Output JSON")
	foodPredictCmd.Flags().BoolVar(&foodLookupTop, "lookup", false, "Also look up nutrition of the best candidate")
	foodPredictCmd.Flags().BoolVar(&foodNoCache, "no-cache", false, "Skip the local nutrition cache")

	foodCachePurgeCmd.Flags().BoolVar(&foodPurgeAll, "all", false, "Delete every cached row, not only expired ones")
}
