package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/viralforge/economy-bridge/internal/app/bootstrap"
	"github.com/viralforge/economy-bridge/internal/application"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "econctl",
		Short:         "Operate the region economy bridge",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "configs/default.yaml", "path to the YAML config file")
	root.AddCommand(
		newTestConnectionCmd(opts),
		newRegisterCmd(opts),
		newCallbacksCmd(opts),
	)
	return root
}

func (o *options) config() (bootstrap.Config, error) {
	return bootstrap.LoadConfig(o.configPath)
}

func (o *options) adminService(ctx context.Context) (bootstrap.Config, *application.Service, error) {
	cfg, err := o.config()
	if err != nil {
		return bootstrap.Config{}, nil, err
	}
	logger := bootstrap.NewLogger("error")
	svc, err := bootstrap.NewAdminService(ctx, cfg, logger)
	if err != nil {
		return bootstrap.Config{}, nil, err
	}
	return cfg, svc, nil
}
