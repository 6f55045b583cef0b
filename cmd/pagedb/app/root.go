package app

import (
	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Blackdeer1524/PageDB/src/cfg"
	"github.com/Blackdeer1524/PageDB/src/pkg/common"
)

func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "pagedb",
		Short:        "Maintenance tooling for a PageDB database directory",
		SilenceUsage: true,
	}

	root.AddCommand(newLogCommand())
	root.AddCommand(newRecoverCommand())

	return root
}

func loadConfigAndLogger() (cfg.Config, common.Logger, error) {
	c, err := cfg.Load()
	if err != nil {
		return cfg.Config{}, nil, errors.Wrap(err, "load config")
	}

	var zl *zap.Logger
	if c.Environment == cfg.EnvDev {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		return cfg.Config{}, nil, errors.Wrap(err, "build logger")
	}

	return c, zl.Sugar(), nil
}
