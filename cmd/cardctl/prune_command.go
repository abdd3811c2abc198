package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove expired images from the scratch directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.cardService()
			if err != nil {
				return err
			}
			removed := svc.PruneImages(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired images from %s\n", removed, svc.ScratchDir())
			return nil
		},
	}
}
