package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ExitError carries a process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// options holds the parsed command line.
type options struct {
	Script     string
	ConfigPath string
	Format     string
	DXFPath    string
	SavePath   string
	Preview    bool
	Progress   bool
	LogLevel   string
	LogFormat  string
}

// parseArgs processes command-line arguments. It reports whether the program
// should exit cleanly, as it does after -h.
func parseArgs(args []string, output io.Writer) (*options, bool, error) {
	flagSet := flag.NewFlagSet("brepbridge", flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, `
brepbridge - convert boundary-representation model scripts into kernel geometry.

Usage:
  brepbridge [options] SCRIPT

Arguments:
  SCRIPT
    Path to a model script, or - to read standard input.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to an HCL settings file.")
	formatFlag := flagSet.String("format", "json", "Report format. Options: 'json' or 'yaml'.")
	dxfFlag := flagSet.String("dxf", "", "Write the converted geometry to this DXF file.")
	saveFlag := flagSet.String("save", "", "Re-encode the converted geometry and write the native model to this file.")
	previewFlag := flagSet.Bool("preview", false, "Mesh every reconstructed face with the kernel.")
	progressFlag := flagSet.Bool("progress", false, "Show a progress bar while converting.")
	logLevelFlag := flagSet.String("log-level", "warn", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if flagSet.NArg() != 1 {
		flagSet.Usage()
		return nil, false, &ExitError{Code: 2, Message: "exactly one script path is required"}
	}

	o := &options{
		Script:     flagSet.Arg(0),
		ConfigPath: *configFlag,
		Format:     strings.ToLower(*formatFlag),
		DXFPath:    *dxfFlag,
		SavePath:   *saveFlag,
		Preview:    *previewFlag,
		Progress:   *progressFlag,
		LogLevel:   strings.ToLower(*logLevelFlag),
		LogFormat:  strings.ToLower(*logFormatFlag),
	}
	if o.Format != "json" && o.Format != "yaml" {
		return nil, false, &ExitError{Code: 2, Message: "invalid format: must be 'json' or 'yaml'"}
	}
	if o.LogFormat != "text" && o.LogFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	switch o.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	return o, false, nil
}

func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}
	return slog.New(handler)
}
