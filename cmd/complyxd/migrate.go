package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/complyx/complyx/internal/engine"
	"github.com/complyx/complyx/internal/logging"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:     "migrate",
		Short:   "Copy every bucket from one storage driver to another",
		Example: "  complyxd migrate --from file --to badger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if from == to {
				return fmt.Errorf("source and destination are both %q", from)
			}
			if from == "memory" || to == "memory" {
				return errors.New("migrate needs persistent drivers (file, badger)")
			}
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging.Env, cfg.Logging.Level)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			src, err := openKV(from, cfg.Storage, logger)
			if err != nil {
				return fmt.Errorf("open source: %w", err)
			}
			dst, err := openKV(to, cfg.Storage, logger)
			if err != nil {
				return errors.Join(fmt.Errorf("open destination: %w", err), src.Close())
			}

			n, err := engine.Migrate(src, dst)
			err = errors.Join(err, dst.Close(), src.Close())
			if err != nil {
				return err
			}
			logger.Info("migration complete", zap.String("from", from), zap.String("to", to), zap.Int("keys", n))
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %d keys from %s to %s\n", n, from, to)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "file", "source driver (file, badger)")
	cmd.Flags().StringVar(&to, "to", "badger", "destination driver (file, badger)")
	return cmd
}
