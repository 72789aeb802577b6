package dangdoc

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/dang-doctor/doctor-fe/internal/reconcile"
)

var (
	bloodDate  string
	bloodSlot  string
	bloodValue float64
	bloodTime  string
	bloodJSON  bool
)

var bloodCmd = &cobra.Command{
	Use:     "blood",
	Aliases: []string{"bs"},
	Short:   "Record and review blood sugar by time slot",
}

var bloodShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the four slots of a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(rt *appEnv) error {
			if _, err := requireLogin(rt); err != nil {
				return err
			}
			day, err := parseDateOrToday(bloodDate)
			if err != nil {
				return err
			}
			r := reconcile.New(rt.api, reconcile.WithLogger(rt.logger))
			if err := r.LoadForDate(cmd.Context(), day); err != nil {
				return err
			}
			if bloodJSON {
				return writeJSON(cmd.OutOrStdout(), r.Summary())
			}
			printBuckets(cmd.OutOrStdout(), r)
			return nil
		})
	},
}

var bloodRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a value for a slot (creates or updates the day's record)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(rt *appEnv) error {
			if _, err := requireLogin(rt); err != nil {
				return err
			}
			slot, err := reconcile.ParseSlot(bloodSlot)
			if err != nil {
				return err
			}
			day, err := parseDateOrToday(bloodDate)
			if err != nil {
				return err
			}
			at, err := parseClockOn(day, bloodTime)
			if err != nil {
				return err
			}

			r := reconcile.New(rt.api, reconcile.WithLogger(rt.logger))
			if err := r.LoadForDate(cmd.Context(), day); err != nil {
				return err
			}
			return setAndSubmit(cmd, r, slot, at)
		})
	},
}

var bloodEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change the value of an existing record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("id", args[0])
		if err != nil {
			return err
		}
		return withEnv(cmd, func(rt *appEnv) error {
			if _, err := requireLogin(rt); err != nil {
				return err
			}
			r := reconcile.New(rt.api, reconcile.WithLogger(rt.logger))
			b, err := r.LoadRecord(cmd.Context(), id)
			if err != nil {
				return err
			}
			at := b.Time
			if bloodTime != "" {
				if at, err = parseClockOn(b.Time, bloodTime); err != nil {
					return err
				}
			}
			return setAndSubmit(cmd, r, b.Key, at)
		})
	},
}

func setAndSubmit(cmd *cobra.Command, r *reconcile.Reconciler, slot reconcile.Slot, at time.Time) error {
	if err := r.SetValue(slot, bloodValue, at); err != nil {
		return err
	}
	if err := r.Submit(cmd.Context(), slot); err != nil {
		return err
	}
	b, _ := r.Bucket(slot)
	id := int64(0)
	if b.ServerID != nil {
		id = *b.ServerID
	}
	switch b.State {
	case reconcile.StateCreated:
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s record %d on %s: %s\n", slot.Label(), id, r.Date(), formatValue(b.Value))
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s record %d on %s: %s\n", slot.Label(), id, r.Date(), formatValue(b.Value))
	}
	return nil
}

func printBuckets(out io.Writer, r *reconcile.Reconciler) {
	fmt.Fprintf(out, "Date: %s\n", r.Date())
	fmt.Fprintln(out, "SLOT\tVALUE\tTIME\tID\tSTATE")
	for _, b := range r.Buckets() {
		id, clock := "-", "-"
		if b.ServerID != nil {
			id = strconv.FormatInt(*b.ServerID, 10)
		}
		if b.Value != nil && !b.Time.IsZero() {
			clock = b.Time.Format("15:04")
		}
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\n", b.Key.Label(), formatValue(b.Value), clock, id, b.State)
	}
	sum := r.Summary()
	if sum.Count == 0 {
		fmt.Fprintln(out, "No readings")
		return
	}
	fmt.Fprintf(out, "Readings: %d, average %.1f, min %s, max %s\n",
		sum.Count, sum.Average, formatValue(&sum.Min), formatValue(&sum.Max))
}

func init() {
	rootCmd.AddCommand(bloodCmd)
	bloodCmd.AddCommand(bloodShowCmd, bloodRecordCmd, bloodEditCmd)

	bloodShowCmd.Flags().StringVar(&bloodDate, "date", "", "Day (YYYY-MM-DD, default today)")
	bloodShowCmd.Flags().BoolVar(&bloodJSON, "json", false, "Output JSON summary")

	bloodRecordCmd.Flags().StringVar(&bloodDate, "date", "", "Day (YYYY-MM-DD, default today)")
	bloodRecordCmd.Flags().StringVar(&bloodSlot, "slot", "", "기상직후/아침/점심/저녁 (or wakeup/morning/noon/evening)")
	bloodRecordCmd.Flags().Float64Var(&bloodValue, "value", 0, "Blood sugar in mg/dL")
	bloodRecordCmd.Flags().StringVar(&bloodTime, "time", "", "Measurement time (HH:MM, default now)")
	_ = bloodRecordCmd.MarkFlagRequired("slot")
	_ = bloodRecordCmd.MarkFlagRequired("value")

	bloodEditCmd.Flags().Float64Var(&bloodValue, "value", 0, "New blood sugar in mg/dL")
	bloodEditCmd.Flags().StringVar(&bloodTime, "time", "", "New measurement time (HH:MM)")
	_ = bloodEditCmd.MarkFlagRequired("value")
}
