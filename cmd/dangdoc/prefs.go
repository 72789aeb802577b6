package dangdoc

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dang-doctor/doctor-fe/internal/profile"
)

var (
	prefsGender   string
	prefsHeight   float64
	prefsWeight   float64
	prefsActivity string
	prefsCarb     int
	prefsProtein  int
	prefsFat      int
	prefsJSON     bool
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Manage body profile and calorie target",
}

var prefsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update body profile preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(rt *appEnv) error {
			cur, err := requireLogin(rt)
			if err != nil {
				return err
			}
			p, err := profile.FromPrefs(cur.Preferences)
			if err != nil {
				p = profile.Profile{Macros: profile.DefaultMacros}
			}

			flags := cmd.Flags()
			if flags.Changed("gender") {
				if p.Gender, err = profile.ParseGender(prefsGender); err != nil {
					return err
				}
			}
			if flags.Changed("activity") {
				if p.Activity, err = profile.ParseActivity(prefsActivity); err != nil {
					return err
				}
			}
			if flags.Changed("height") {
				p.HeightCm = prefsHeight
			}
			if flags.Changed("weight") {
				p.WeightKg = prefsWeight
			}
			if flags.Changed("carb") {
				p.Macros.Carb = prefsCarb
			}
			if flags.Changed("protein") {
				p.Macros.Protein = prefsProtein
			}
			if flags.Changed("fat") {
				p.Macros.Fat = prefsFat
			}
			if err := p.Validate(); err != nil {
				return err
			}

			rt.session.UpdatePreferences(cmd.Context(), p.Prefs())
			return printProfile(cmd.OutOrStdout(), p)
		})
	},
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show body profile and daily calorie target",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(rt *appEnv) error {
			cur, err := requireLogin(rt)
			if err != nil {
				return err
			}
			p, err := profile.FromPrefs(cur.Preferences)
			if err != nil {
				return fmt.Errorf("profile incomplete (run `dangdoc prefs set`): %w", err)
			}
			if prefsJSON {
				target, err := profile.CalorieTarget(p)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{"profile": p.Prefs(), "target": target})
			}
			return printProfile(cmd.OutOrStdout(), p)
		})
	},
}

func printProfile(out io.Writer, p profile.Profile) error {
	target, err := profile.CalorieTarget(p)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Gender: %s\n", p.Gender)
	fmt.Fprintf(out, "Height: %.1f cm\n", p.HeightCm)
	fmt.Fprintf(out, "Weight: %.1f kg\n", p.WeightKg)
	fmt.Fprintf(out, "Activity: %s\n", p.Activity)
	fmt.Fprintf(out, "Standard weight: %.1f kg\n", target.StdWeightKg)
	fmt.Fprintf(out, "Daily target: %d-%d kcal (mid %d)\n", target.MinKcal, target.MaxKcal, target.MidKcal)
	carb, protein, fat := p.Macros.Grams(target.MidKcal)
	fmt.Fprintf(out, "Macros: carb %d%% (%dg), protein %d%% (%dg), fat %d%% (%dg)\n",
		p.Macros.Carb, carb, p.Macros.Protein, protein, p.Macros.Fat, fat)
	return nil
}

func init() {
	rootCmd.AddCommand(prefsCmd)
	prefsCmd.AddCommand(prefsSetCmd, prefsShowCmd)

	prefsSetCmd.Flags().StringVar(&prefsGender, "gender", "", "남/여 (or male/female)")
	prefsSetCmd.Flags().Float64Var(&prefsHeight, "height", 0, "Height in cm")
	prefsSetCmd.Flags().Float64Var(&prefsWeight, "weight", 0, "Weight in kg")
	prefsSetCmd.Flags().StringVar(&prefsActivity, "activity", "", "가벼운 활동/보통 활동/힘든 활동 (or light/moderate/heavy)")
	prefsSetCmd.Flags().IntVar(&prefsCarb, "carb", 0, "Carbohydrate share in percent")
	prefsSetCmd.Flags().IntVar(&prefsProtein, "protein", 0, "Protein share in percent")
	prefsSetCmd.Flags().IntVar(&prefsFat, "fat", 0, "Fat share in percent")
	prefsShowCmd.Flags().BoolVar(&prefsJSON, "json", false, "Output JSON")
}
