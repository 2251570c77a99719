package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/relayrpc/internal/config"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns the server Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*config.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("relayrpc", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
RelayRPC - A transport-agnostic RPC method dispatch server.

Usage:
  relayrpc [options] [CONFIG_PATH]

Arguments:
  CONFIG_PATH
    Path to an .hcl server configuration file. When omitted, a single
    JSON-over-HTTP listener on 127.0.0.1:8545 is served.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to the server configuration file.")
	cFlag := flagSet.String("c", "", "Path to the server configuration file (shorthand).")
	listenFlag := flagSet.String("listen", "", "Serve JSON over HTTP on this address, replacing the config's listen blocks.")
	healthPortFlag := flagSet.Int("healthcheck-port", -1, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 0, "Number of requests processed concurrently per listener.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *configFlag != "" {
		path = *configFlag
	} else if *cFlag != "" {
		path = *cFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Config path determined.", "path", path)

	var cfg *config.Config
	if path == "" {
		cfg = config.Default()
	} else {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
		cfg = loaded
	}

	// Flag overrides take precedence over the file.
	if *listenFlag != "" {
		cfg.Listeners = []config.Listener{{
			Kind:  "http",
			Addr:  *listenFlag,
			Path:  "/rpc",
			Codec: "json",
		}}
	}
	if *healthPortFlag >= 0 {
		cfg.HealthcheckPort = *healthPortFlag
	}
	if *workersFlag > 0 {
		cfg.Workers = *workersFlag
	}

	if *logFormatFlag != "" {
		logFormat := strings.ToLower(*logFormatFlag)
		if logFormat != "text" && logFormat != "json" {
			return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
		}
		cfg.LogFormat = logFormat
	}

	if *logLevelFlag != "" {
		logLevel := strings.ToLower(*logLevelFlag)
		switch logLevel {
		case "debug", "info", "warn", "error":
			// valid
		default:
			return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
		}
		cfg.LogLevel = logLevel
	}
	slog.Debug("CLI parameter validation complete.")

	slog.Debug("CLI parser finished successfully.", "config", cfg)
	return cfg, false, nil
}
