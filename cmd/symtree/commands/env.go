// Package commands implements CLI command handlers for symtree.
package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/Sumatoshi-tech/symtree/pkg/config"
	"github.com/Sumatoshi-tech/symtree/pkg/observability"
	"github.com/Sumatoshi-tech/symtree/pkg/symtree"
	"github.com/Sumatoshi-tech/symtree/pkg/version"
)

// Env is the state shared by all commands, filled from persistent flags.
type Env struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool

	Config *config.Config
	Logger *slog.Logger

	// LogOutput receives log records. Defaults to stderr.
	LogOutput io.Writer
}

// Setup loads the configuration and builds the logger. A preset Config is kept.
func (env *Env) Setup() error {
	if env.Config == nil {
		cfg, err := config.LoadConfig(env.ConfigPath)
		if err != nil {
			return err
		}

		env.Config = cfg
	}

	obsCfg, err := env.observabilityConfig(observability.ModeCLI)
	if err != nil {
		return err
	}

	output := env.LogOutput
	if output == nil {
		output = os.Stderr
	}

	env.Logger = observability.NewLogger(output, obsCfg)

	return nil
}

func (env *Env) observabilityConfig(mode observability.AppMode) (observability.Config, error) {
	level, err := observability.ParseLevel(env.Config.Logging.Level)
	if err != nil {
		return observability.Config{}, err
	}

	switch {
	case env.Verbose:
		level = slog.LevelDebug
	case env.Quiet:
		level = slog.LevelError
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceName = env.Config.Metrics.ServiceName
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.OTLPEndpoint = env.Config.Metrics.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	obsCfg.OTLPInsecure = os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true"
	obsCfg.LogLevel = level
	obsCfg.LogJSON = env.Config.Logging.Format == "json"

	return obsCfg, nil
}

// TreeOptions builds document options from the index configuration.
func (env *Env) TreeOptions(name string) (symtree.Options, error) {
	counter, err := symtree.CharCounterByName(env.Config.Index.CharUnit)
	if err != nil {
		return symtree.Options{}, err
	}

	return symtree.Options{
		CharCounter:      counter,
		Logger:           env.Logger,
		Name:             name,
		ValidateOnCommit: env.Config.Index.ValidateOnCommit,
	}, nil
}
