/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/suparena/entitysync/entity"
	"github.com/suparena/entitysync/serializer"
)

var errLimit = errors.New("limit reached")

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var filters []string
	var limit int

	cmd := &cobra.Command{
		Use:          "list <type>",
		Short:        "List entities of a type",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			filter, err := parseFilters(filters)
			if err != nil {
				return err
			}
			p, sc, err := rootOpts.session(ctx, args[0])
			if err != nil {
				return err
			}
			rules, err := rootOpts.rules()
			if err != nil {
				return err
			}

			var entities []*entity.Entity
			err = p.Each(ctx, sc.WithFilter(filter), args[0], func(e *entity.Entity) error {
				entities = append(entities, e)
				if limit > 0 && len(entities) >= limit {
					return errLimit
				}
				return nil
			})
			if err != nil && !errors.Is(err, errLimit) {
				return err
			}
			zerolog.Ctx(ctx).Debug().Int("count", len(entities)).Str("type", args[0]).Msg("listed entities")

			maps, err := serializer.SerializeAll(ctx, entities, rules)
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), rootOpts.Format, maps)
		},
	}

	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "filter as field=value (repeatable)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "stop after this many entities")

	return cmd
}

func parseFilters(filters []string) (map[string]any, error) {
	if len(filters) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(filters))
	for _, f := range filters {
		k, v, ok := strings.Cut(f, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid filter %q: expected field=value", f)
		}
		out[k] = v
	}
	return out, nil
}
