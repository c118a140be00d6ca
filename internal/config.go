package internal

import (
	"fmt"
	"time"
)

// DefaultHistoryLimit is the replay window sent to a freshly joined
// session when HISTORY_LIMIT is unset.
const DefaultHistoryLimit = 50

type Config struct {
	Host                 string        `env:"HOST,required=true"`
	Port                 int           `env:"PORT,required=true"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel             string        `env:"LOG_LEVEL,required=true"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	CommandTimeout       time.Duration `env:"COMMAND_TIMEOUT,required=true"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,required=true"`
	GCInterval           time.Duration `env:"GC_INTERVAL,required=true"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,required=true"`

	HistoryLimit   *int   `env:"HISTORY_LIMIT"`
	Namespace      string `env:"NAMESPACE"`
	KubeconfigPath string `env:"KUBECONFIG_PATH"`
	DebugPort      int    `env:"DEBUG_PORT"`
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// History resolves the replay window, defaulting when unset or absurd.
func (c Config) History() int {
	if c.HistoryLimit == nil || *c.HistoryLimit <= 0 {
		return DefaultHistoryLimit
	}
	return *c.HistoryLimit
}
