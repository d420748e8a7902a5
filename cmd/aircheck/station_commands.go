package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"aircheck/internal/capture"
	"aircheck/internal/station"
	"aircheck/internal/store"
)

func newStationCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "station",
		Short: "Manage stream stations",
	}
	cmd.AddCommand(newStationAddCommand(ctx))
	cmd.AddCommand(newStationListCommand(ctx))
	cmd.AddCommand(newStationValidateCommand(ctx))
	return cmd
}

func stationService(ctx *commandContext, st *store.Store) (*station.Service, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	prober, err := capture.NewProber(cfg.FFprobeBinary(), 0)
	if err != nil {
		return nil, err
	}
	return station.NewService(st, prober, nil), nil
}

func newStationAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <stream-url>",
		Short: "Register a station and probe its stream",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				service, err := stationService(ctx, st)
				if err != nil {
					return err
				}
				created, err := service.Register(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if created.Valid {
					fmt.Fprintf(cmd.OutOrStdout(), "station %d registered (%s, %d kbit/s)\n", created.ID, created.Format, created.Bitrate)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "station %d registered but the stream could not be validated; run `aircheck station validate %d` once it is reachable\n", created.ID, created.ID)
				}
				return nil
			})
		},
	}
}

func newStationListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered stations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withStore(func(st *store.Store) error {
				stations, err := st.ListStations(cmd.Context())
				if err != nil {
					return err
				}
				if len(stations) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no stations registered")
					return nil
				}
				rows := make([][]string, 0, len(stations))
				for _, s := range stations {
					format := s.Format
					if format == "" {
						format = "-"
					}
					rows = append(rows, []string{
						strconv.FormatInt(s.ID, 10),
						s.Name,
						s.StreamURL,
						format,
						strconv.Itoa(s.Bitrate),
						yesNo(s.Valid),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Stream", "Format", "kbit/s", "Valid"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

func newStationValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <station-id>",
		Short: "Probe a station's stream again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid station id %q", args[0])
			}
			return ctx.withStore(func(st *store.Store) error {
				service, err := stationService(ctx, st)
				if err != nil {
					return err
				}
				if err := service.Validate(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "station %d validated\n", id)
				return nil
			})
		},
	}
}
