package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aydenstechdungeon/formfield"
	"github.com/aydenstechdungeon/formfield/config"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var (
		configPath string
		addr       string
		demo       bool
		dev        bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the form field server",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				file.Addr = addr
			}
			if cmd.Flags().Changed("demo") {
				file.Demo = demo
			}
			if cmd.Flags().Changed("dev") {
				file.DevMode = dev
			}
			return serve(cmd.Context(), configPath, file)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file path")
	cmd.Flags().StringVar(&addr, "addr", ":3000", "listen address")
	cmd.Flags().BoolVar(&demo, "demo", false, "mount the demo page on /")
	cmd.Flags().BoolVar(&dev, "dev", false, "development mode (request logs, config reload)")
	return cmd
}

func serve(ctx context.Context, configPath string, file *config.Config) error {
	cfg, err := formfield.FromFile(ctx, file)
	if err != nil {
		return err
	}
	app, err := formfield.New(cfg)
	if err != nil {
		_ = cfg.Logger.Close()
		return err
	}
	log := cfg.Logger.NewComponentLogger("serve")

	if file.DevMode && configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, cfg.Logger, func(next *config.Config) {
				if err := app.ReloadForms(next.FormDefs()); err != nil {
					log.WithError(err).Error("form reload rejected")
				}
			})
			if err != nil {
				log.WithError(err).Warn("config watch stopped")
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- app.Listen(file.Addr) }()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen %s: %w", file.Addr, err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
