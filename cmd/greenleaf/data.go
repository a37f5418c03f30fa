package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sharanperla/Greenleaf-client/internal/app"
	"github.com/sharanperla/Greenleaf-client/internal/core"
)

func newDiseasesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "diseases",
		Short: "Show the disease reference list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				diseases, err := a.Diseases.Refresh(cmd.Context())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
				for _, d := range diseases {
					fmt.Fprintf(w, "%s\t%s\t%s\n", d.ID, d.Name, d.Description)
				}
				return w.Flush()
			})
		},
	}
}

func newPredictCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "predict IMAGE",
		Short: "Diagnose a leaf photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				granted, err := a.Media.RequestMediaLibrary(cmd.Context())
				if err != nil {
					return err
				}
				if !granted {
					return core.ErrMediaDenied
				}
				asset, err := a.Media.Pick(args[0])
				if err != nil {
					return err
				}
				p, err := a.Predict.Predict(cmd.Context(), asset.URI)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (%.0f%%)\n", p.Disease, p.Confidence*100)
				for _, r := range p.Remedies {
					fmt.Fprintf(out, "  - %s\n", r)
				}
				if len(p.OtherPredictions) > 0 {
					fmt.Fprintln(out, "Also possible:")
					for _, c := range p.OtherPredictions {
						fmt.Fprintf(out, "  %s (%.0f%%)\n", c.Disease, c.Confidence*100)
					}
				}
				return nil
			})
		},
	}
}
