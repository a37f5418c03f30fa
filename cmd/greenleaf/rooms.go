package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sharanperla/Greenleaf-client/internal/app"
)

func newRoomsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "List or create chat rooms",
	}
	cmd.AddCommand(newRoomsListCmd(opts), newRoomsCreateCmd(opts))
	return cmd
}

func newRoomsListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rooms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				rooms, err := a.Rooms.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(rooms) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No rooms yet")
					return nil
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
				for _, r := range rooms {
					fmt.Fprintf(w, "%d\t%s\t%s\n", r.ID, r.Name, r.Description)
				}
				return w.Flush()
			})
		},
	}
}

func newRoomsCreateCmd(opts *rootOptions) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				room, err := a.Rooms.Create(cmd.Context(), args[0], description)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created room %s (id %d)\n", room.Name, room.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "room description")
	return cmd
}
