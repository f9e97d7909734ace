/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cli

import (
	"github.com/spf13/cobra"
	"github.com/suparena/entitysync/serializer"
)

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "get <type> <key>",
		Short:        "Read one entity by key",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			p, sc, err := rootOpts.session(ctx, args[0])
			if err != nil {
				return err
			}
			rules, err := rootOpts.rules()
			if err != nil {
				return err
			}

			e, err := p.Get(ctx, sc, args[0], args[1])
			if err != nil {
				return err
			}
			m, err := serializer.Serialize(ctx, e, rules)
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), rootOpts.Format, m)
		},
	}
}
