// Command complyxd serves the Comply-X document control API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/complyx/complyx/internal/config"
)

const serviceName = "complyxd"

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configPath string
	envFiles   []string
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.configPath, o.envFiles...)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Comply-X document access control and workflow daemon",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv(config.EnvPrefix+"CONFIG"), "path to a YAML config file")
	root.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "dotenv files to load before the environment")

	root.AddCommand(newServeCmd(opts), newMigrateCmd(opts), newConfigCmd(opts))
	return root
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			redacted := *cfg
			for _, secret := range []*string{&redacted.AI.APIKey, &redacted.Storage.EncryptionKey, &redacted.Server.GatewayToken} {
				if *secret != "" {
					*secret = "********"
				}
			}
			out, err := redacted.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
