package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"aircheck/internal/scheduler"
	"aircheck/internal/store"
)

// noopRunner satisfies the scheduler's runner surface for CLI commands
// that only manipulate state; the daemon owns actual execution.
type noopRunner struct{}

func (noopRunner) Run(context.Context, *store.Recording)    {}
func (noopRunner) Settle(context.Context, *store.Recording) {}

func newRecordingCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recording",
		Short: "Inspect and cancel recordings",
	}
	cmd.AddCommand(newRecordingListCommand(ctx))
	cmd.AddCommand(newRecordingCancelCommand(ctx))
	cmd.AddCommand(newRecordingShowCommand(ctx))
	return cmd
}

func newRecordingListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recordings, optionally filtered by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			statuses, err := parseStatuses(statusFlag)
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				recordings, err := st.ListRecordings(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(recordings) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no recordings")
					return nil
				}
				colorize := shouldColorize(cmd.OutOrStdout())
				rows := make([][]string, 0, len(recordings))
				for _, rec := range recordings {
					size := "-"
					if rec.FileSize > 0 {
						size = humanize.Bytes(uint64(rec.FileSize))
					}
					rows = append(rows, []string{
						strconv.FormatInt(rec.ID, 10),
						rec.Name,
						formatTimestamp(rec.Start),
						formatDuration(rec.Duration()),
						colorStatus(rec.Status, colorize),
						yesNo(rec.Interrupted),
						size,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Start", "Length", "Status", "Interrupted", "Size"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&statusFlag, "status", "", "Filter by status, comma separated (scheduled, recording, complete, partial, failed)")
	return cmd
}

func newRecordingCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <recording-id>",
		Short: "Cancel a recording that has not started",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid recording id %q", args[0])
			}
			return ctx.withStore(func(st *store.Store) error {
				sched, err := scheduler.New(scheduler.Options{Store: st, Runner: noopRunner{}})
				if err != nil {
					return err
				}
				if err := sched.CancelRecording(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "recording %d cancelled\n", id)
				return nil
			})
		},
	}
}

func newRecordingShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <recording-id>",
		Short: "Show one recording with its segments and storage results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid recording id %q", args[0])
			}
			return ctx.withStore(func(st *store.Store) error {
				rec, err := st.RecordingByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if rec == nil {
					return fmt.Errorf("recording %d not found", id)
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				fmt.Fprintf(out, "Recording %d: %s\n", rec.ID, rec.Name)
				fmt.Fprintf(out, "  Window:  %s - %s (%s)\n", formatTimestamp(rec.Start), formatTimestamp(rec.End), formatDuration(rec.Duration()))
				fmt.Fprintf(out, "  Status:  %s (interrupted: %s)\n", colorStatus(rec.Status, colorize), yesNo(rec.Interrupted))
				if rec.FinalFile != "" {
					fmt.Fprintf(out, "  File:    %s (%s)\n", rec.FinalFile, humanize.Bytes(uint64(rec.FileSize)))
				}

				segments, err := st.SegmentsForRecording(cmd.Context(), rec.ID)
				if err != nil {
					return err
				}
				if len(segments) > 0 {
					fmt.Fprintf(out, "  Segments:\n")
					for _, segment := range segments {
						fmt.Fprintf(out, "    #%d %s (%s)\n", segment.Seq, segment.Path, humanize.Bytes(uint64(segment.Size)))
					}
				}

				statuses, err := st.StorageStatuses(cmd.Context(), rec.ID)
				if err != nil {
					return err
				}
				if len(statuses) > 0 {
					fmt.Fprintf(out, "  Storage:\n")
					for _, status := range statuses {
						detail := status.Location
						if status.State == store.StorageFailed {
							detail = status.Detail
						}
						fmt.Fprintf(out, "    %-11s %-7s %s\n", status.Destination, status.State, detail)
					}
				}
				return nil
			})
		},
	}
}
