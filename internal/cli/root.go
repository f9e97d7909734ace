/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package cli implements the syncctl command line.
package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/suparena/entitysync"
	"github.com/suparena/entitysync/config"
	"github.com/suparena/entitysync/serializer"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Config   string
	Provider string
	Verbose  bool
	Format   string // "json" | "yaml"
	Case     string
	Eager    int
	Resolve  bool
	Include  []string
	Exclude  []string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"json", "yaml"}

// NewRootCommand creates the root command for syncctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "syncctl",
		Short: "Read entities through configured providers",
		Long: `syncctl reads entities from the providers described in a configuration file
and prints them with their relationships.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			level := zerolog.InfoLevel
			if opts.Verbose {
				level = zerolog.DebugLevel
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(level).With().Timestamp().Logger()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(logger.WithContext(ctx))
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "entitysync.yaml", "configuration file")
	cmd.PersistentFlags().StringVarP(&opts.Provider, "provider", "p", "", "provider name (default: the provider bound to the type)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "json", "output format (json|yaml)")
	cmd.PersistentFlags().StringVar(&opts.Case, "case", "preserve", "key case (preserve|snake|camel|kebab)")
	cmd.PersistentFlags().IntVar(&opts.Eager, "eager", 0, "load relationships eagerly up to this depth")
	cmd.PersistentFlags().BoolVar(&opts.Resolve, "resolve", false, "load deferred relationships while printing")
	cmd.PersistentFlags().StringSliceVar(&opts.Include, "include", nil, "only print these fields (name or Type.name)")
	cmd.PersistentFlags().StringSliceVar(&opts.Exclude, "exclude", nil, "never print these fields (name or Type.name)")

	// Add subcommands
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

// session loads the configuration and opens a context on the provider for entityType
func (opts *RootOptions) session(ctx context.Context, entityType string) (*entitysync.Provider, *entitysync.Context, error) {
	cfg, err := config.LoadFile(opts.Config)
	if err != nil {
		return nil, nil, err
	}
	rt, err := cfg.Build(ctx)
	if err != nil {
		return nil, nil, err
	}

	var p *entitysync.Provider
	if opts.Provider != "" {
		p, err = rt.Providers.Get(opts.Provider)
	} else {
		p, err = rt.Providers.For(entityType)
	}
	if err != nil {
		return nil, nil, err
	}

	policy := rt.Policy
	if opts.Eager > 0 {
		policy = entitysync.EagerTo(opts.Eager)
	}
	return p, p.Context(entitysync.WithPolicy(policy)), nil
}

func (opts *RootOptions) rules() (serializer.Rules, error) {
	c, err := serializer.ParseCase(opts.Case)
	if err != nil {
		return serializer.Rules{}, err
	}
	rules := serializer.Rules{
		Include:     opts.Include,
		Exclude:     opts.Exclude,
		Case:        c,
		IncludeType: true,
	}
	if opts.Resolve {
		rules.Deferred = serializer.DeferredResolve
	}
	return rules, nil
}
