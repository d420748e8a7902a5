package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"aircheck/internal/scheduler"
	"aircheck/internal/store"
)

func newRuleCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Manage schedule rules",
	}
	cmd.AddCommand(newRuleAddCommand(ctx))
	cmd.AddCommand(newRuleListCommand(ctx))
	cmd.AddCommand(newRuleDeleteCommand(ctx))
	return cmd
}

func newRuleAddCommand(ctx *commandContext) *cobra.Command {
	var (
		recurrenceFlag string
		startFlag      string
		durationFlag   time.Duration
		untilFlag      string
		podcastFlag    int64
		extraLocalFlag bool
		remoteFlag     bool
		keepFlag       int
	)

	cmd := &cobra.Command{
		Use:   "add <station-id> <name>",
		Short: "Create a schedule rule and its first recording",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stationID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid station id %q", args[0])
			}
			recurrence, ok := store.ParseRecurrence(recurrenceFlag)
			if !ok {
				return fmt.Errorf("unknown recurrence %q (once, daily, weekdays, weekends, weekly)", recurrenceFlag)
			}
			start, err := parseLocalTime(startFlag)
			if err != nil {
				return err
			}

			rule := &store.Rule{
				StationID:  stationID,
				Name:       args[1],
				Recurrence: recurrence,
				Start:      start,
				Duration:   durationFlag,
				ExtraLocal: extraLocalFlag,
				Remote:     remoteFlag,
				KeepCount:  keepFlag,
			}
			if untilFlag != "" {
				until, err := parseLocalTime(untilFlag)
				if err != nil {
					return err
				}
				rule.RecurrenceEnd = &until
			}
			if podcastFlag > 0 {
				rule.PodcastID = &podcastFlag
			}

			return ctx.withStore(func(st *store.Store) error {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				sched, err := scheduler.New(scheduler.Options{
					Store:          st,
					Runner:         noopRunner{},
					DefaultFormat:  cfg.Capture.DefaultFormat,
					DefaultBitrate: cfg.Capture.DefaultBitrate,
				})
				if err != nil {
					return err
				}
				created, err := sched.SubmitRule(cmd.Context(), rule)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rule %d created (%s, %s)\n", created.ID, created.Recurrence, formatDuration(created.Duration))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&recurrenceFlag, "recurrence", "once", "Recurrence: once, daily, weekdays, weekends, weekly")
	cmd.Flags().StringVar(&startFlag, "start", "", "First start time (2006-01-02 15:04, local time)")
	cmd.Flags().DurationVar(&durationFlag, "duration", 0, "Capture length, e.g. 30m or 1h")
	cmd.Flags().StringVar(&untilFlag, "until", "", "Last day the rule may fire (2006-01-02 15:04, local time)")
	cmd.Flags().Int64Var(&podcastFlag, "podcast", 0, "Podcast ID to publish episodes into")
	cmd.Flags().BoolVar(&extraLocalFlag, "extra-local", false, "Also archive to the extra local directory")
	cmd.Flags().BoolVar(&remoteFlag, "remote", false, "Also upload to the remote share")
	cmd.Flags().IntVar(&keepFlag, "keep", 0, "Keep only the newest N files of this rule in the recordings directory (0 keeps all)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("duration")

	return cmd
}

func newRuleListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List schedule rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withStore(func(st *store.Store) error {
				rules, err := st.ListRules(cmd.Context())
				if err != nil {
					return err
				}
				if len(rules) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no rules defined")
					return nil
				}
				rows := make([][]string, 0, len(rules))
				for _, rule := range rules {
					until := "-"
					if rule.RecurrenceEnd != nil {
						until = formatTimestamp(*rule.RecurrenceEnd)
					}
					rows = append(rows, []string{
						strconv.FormatInt(rule.ID, 10),
						rule.Name,
						string(rule.Recurrence),
						formatTimestamp(rule.Start),
						formatDuration(rule.Duration),
						until,
						yesNo(rule.ExtraLocal),
						yesNo(rule.Remote),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Recurrence", "Start", "Duration", "Until", "Extra", "Remote"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newRuleDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete a rule; finished recordings are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid rule id %q", args[0])
			}
			return ctx.withStore(func(st *store.Store) error {
				deleted, err := st.DeleteRule(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !deleted {
					return fmt.Errorf("rule %d not found", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rule %d deleted\n", id)
				return nil
			})
		},
	}
}

// parseLocalTime accepts a local wall-clock timestamp and converts it to
// UTC for storage.
func parseLocalTime(value string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02T15:04", time.RFC3339} {
		if parsed, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (expected 2006-01-02 15:04)", value)
}
