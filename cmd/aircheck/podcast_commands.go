package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"aircheck/internal/store"
)

func newPodcastCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "podcast",
		Short: "Manage podcasts that recordings publish into",
	}
	cmd.AddCommand(newPodcastAddCommand(ctx))
	cmd.AddCommand(newPodcastListCommand(ctx))
	return cmd
}

func newPodcastAddCommand(ctx *commandContext) *cobra.Command {
	var (
		descriptionFlag string
		authorFlag      string
		languageFlag    string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a podcast",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				created, err := st.CreatePodcast(cmd.Context(), &store.Podcast{
					Title:       args[0],
					Description: descriptionFlag,
					Author:      authorFlag,
					Language:    languageFlag,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "podcast %d created (%s)\n", created.ID, created.UUID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&descriptionFlag, "description", "", "Podcast description")
	cmd.Flags().StringVar(&authorFlag, "author", "", "Podcast author")
	cmd.Flags().StringVar(&languageFlag, "language", "", "Feed language code (default en-GB)")
	return cmd
}

func newPodcastListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List podcasts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withStore(func(st *store.Store) error {
				podcasts, err := st.ListPodcasts(cmd.Context())
				if err != nil {
					return err
				}
				if len(podcasts) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no podcasts defined")
					return nil
				}
				rows := make([][]string, 0, len(podcasts))
				for _, p := range podcasts {
					rows = append(rows, []string{
						strconv.FormatInt(p.ID, 10),
						p.Title,
						p.Author,
						p.Language,
						p.UUID,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Author", "Language", "UUID"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}
