package pkg

import (
	"errors"
	"os"
	"time"

	"github.com/ManouchehrRasoulli/hotserve/pkg/logger"
	"gopkg.in/yaml.v3"
)

var (
	ErrConfigRoot   = errors.New("config: root must be set")
	ErrConfigBuffer = errors.New("config: notify.buffer must be positive")
)

type NotifyConfig struct {
	Buffer    int           `yaml:"buffer"`
	KeepAlive time.Duration `yaml:"keep_alive"`
}

type Config struct {
	Address        string        `yaml:"address"`
	Root           string        `yaml:"root"`
	Fallback       string        `yaml:"fallback"`
	MetricsAddress string        `yaml:"metrics_address"`
	Notify         NotifyConfig  `yaml:"notify"`
	Log            logger.Config `yaml:"log"`
}

func DefaultConfig() Config {
	return Config{
		Address:  "127.0.0.1:8080",
		Root:     ".",
		Fallback: "index.html",
		Notify: NotifyConfig{
			Buffer:    64,
			KeepAlive: 30 * time.Second,
		},
		Log: logger.Config{
			Level:  "info",
			Pretty: true,
		},
	}
}

// ReadConfig loads file over the defaults. Keys missing from the file keep
// their default value.
func ReadConfig(file string) (*Config, error) {
	yfile, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	c := DefaultConfig()
	err = yaml.Unmarshal(yfile, &c)
	if err != nil {
		return nil, err
	}

	return &c, c.Validate()
}

func (c *Config) Validate() error {
	var errs []error
	if c.Root == "" {
		errs = append(errs, ErrConfigRoot)
	}
	if c.Notify.Buffer <= 0 {
		errs = append(errs, ErrConfigBuffer)
	}
	return errors.Join(errs...)
}
