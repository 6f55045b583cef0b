package cfg

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

type Config struct {
	Environment string `default:"dev" split_words:"true"`

	DataDir string `default:"pagedb_data" split_words:"true"`
	LogFile string `default:"pagedb.log" split_words:"true"`

	BlockSize int `default:"4096" split_words:"true"`
	PoolSize  int `default:"8" split_words:"true"`

	LockTimeout time.Duration `default:"10s" split_words:"true"`
	PinTimeout  time.Duration `default:"10s" split_words:"true"`
}

// Load reads the configuration from the environment, with an optional
// .env file in the working directory.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := envconfig.Process("PAGEDB", &c); err != nil {
		return Config{}, errors.Wrap(err, "process env")
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}

	return c, nil
}

func (c Config) Validate() error {
	if c.Environment != EnvDev && c.Environment != EnvProd {
		return errors.New("environment must be either dev or prod")
	}

	if c.BlockSize <= 0 {
		return errors.New("block size must be positive")
	}

	if c.PoolSize <= 0 {
		return errors.New("pool size must be positive")
	}

	return nil
}
