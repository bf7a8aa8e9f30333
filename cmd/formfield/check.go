package main

import (
	"github.com/aydenstechdungeon/formfield/config"
	"github.com/spf13/cobra"
)

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <config>",
		Short: "Validate a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())
			cfg, err := config.Load(args[0])
			if err != nil {
				p.Error("%s: %v", args[0], err)
				return err
			}

			p.Success("%s is valid", args[0])
			p.Info("store: %s (%s codec, ttl %s)", cfg.Store.Backend, cfg.Store.Codec, cfg.Store.TTL)
			for _, f := range cfg.Forms {
				p.Info("form %s: %d fields", f.Name, len(f.Fields))
				for _, spec := range f.Fields {
					p.Detail("%s (%s)", spec.Name, spec.Kind)
				}
			}
			if len(cfg.Forms) == 0 {
				p.Warning("no forms declared")
			}
			return nil
		},
	}
}
