package app

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Blackdeer1524/PageDB/src/engine"
)

func newRecoverCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Run crash recovery against the database directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, logger, err := loadConfigAndLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			// engine startup is recovery: undo unfinished transactions,
			// flush, checkpoint
			e, err := engine.New(c, afero.NewOsFs(), logger)
			if err != nil {
				return err
			}

			return e.Close()
		},
	}
}
