package internal

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

var (
	// DefaultConfigPath is the default directory holding the config file
	DefaultAppName        = "kwscan"
	DefaultConfigPath     = filepath.Join(getHomeDir(), ".config", DefaultAppName)
	DefaultSystemConfig   = filepath.Join("/etc", DefaultAppName)
	DefaultIgnoreFileName = "." + DefaultAppName + "ignore"
	DefaultEnvPrefix      = strings.ToUpper(DefaultAppName)

	// WorkerProcessEnv marks a child process started by the isolated strategy
	WorkerProcessEnv = DefaultEnvPrefix + "_WORKER_PROCESS"
)

func getHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			log.Printf("Unable to get home or working directory, using /tmp: %v", err)
			return "/tmp"
		}
		log.Printf("Unable to get home directory, using current working directory: %v", err)
		return cwd
	}
	return homeDir
}

// NewLogger builds a logger writing to w at the given level. Format "json"
// emits one JSON object per line, anything else uses the console writer.
func NewLogger(level, format string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
