package app

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Blackdeer1524/PageDB/src/recovery"
	"github.com/Blackdeer1524/PageDB/src/storage/disk"
)

// newLogCommand prints the write-ahead log in reverse (newest first)
// order. It opens the log directly, without running recovery, so it is
// safe to inspect a database that failed to start.
func newLogCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "log",
		Short: "Print the write-ahead log, newest record first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, logger, err := loadConfigAndLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			d, err := disk.New(afero.NewOsFs(), c.DataDir, c.BlockSize)
			if err != nil {
				return err
			}
			defer func() { _ = d.Close() }()

			lm, err := recovery.NewLogManager(d, c.LogFile, logger)
			if err != nil {
				return err
			}

			iter, err := lm.Iterator()
			if err != nil {
				return err
			}

			for iter.HasNext() {
				raw, err := iter.Next()
				if err != nil {
					return err
				}

				rec, err := recovery.ParseLogRecord(raw)
				if err != nil {
					return err
				}

				cmd.Println(rec.String())
			}

			return nil
		},
	}
}
