// Command brepbridge evaluates a model script, converts the native B-rep
// model it describes into kernel geometry and prints a report of the
// result. Optionally it draws the geometry into a DXF file and writes the
// re-encoded native model back out.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/brepbridge/pkg/config"
	"github.com/chazu/brepbridge/pkg/convert"
	"github.com/chazu/brepbridge/pkg/geom"
	"github.com/chazu/brepbridge/pkg/model"
	"github.com/schollz/progressbar/v3"
	"gopkg.in/yaml.v3"
)

// ErrConversionFailed is returned when the script does not evaluate or the
// model it builds cannot be loaded. The report is still written.
var ErrConversionFailed = errors.New("conversion failed")

func main() {
	if err := run(os.Stdout, os.Stderr, os.Stdin, os.Args[1:]); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "brepbridge: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the command so tests can drive it with buffers.
func run(outW, errW io.Writer, in io.Reader, args []string) error {
	o, shouldExit, err := parseArgs(args, errW)
	if err != nil || shouldExit {
		return err
	}

	logger := newLogger(o.LogLevel, o.LogFormat, errW)
	convert.SetLogger(logger)
	defer convert.SetLogger(nil)

	cfg := config.Default()
	if o.ConfigPath != "" {
		if cfg, err = config.Load(o.ConfigPath); err != nil {
			return &ExitError{Code: 2, Message: err.Error()}
		}
	}

	source, err := readScript(o.Script, in)
	if err != nil {
		return err
	}

	app := NewApp(cfg)
	app.Preview = o.Preview
	var bar *progressbar.ProgressBar
	if o.Progress {
		app.Progress = func(total int) func() {
			bar = progressbar.Default(int64(total), "converting")
			return func() { _ = bar.Add(1) }
		}
	}

	logger.Debug("converting", "script", o.Script, "config", cfg)
	report, res := app.Convert(source)
	if bar != nil {
		_ = bar.Close()
	}
	if err := writeReport(outW, o.Format, report); err != nil {
		return err
	}
	if res == nil {
		return fmt.Errorf("%w: %d errors", ErrConversionFailed, len(report.Errors))
	}

	if o.DXFPath != "" {
		if err := app.ExportDXF(res, o.DXFPath); err != nil {
			return err
		}
		logger.Info("drawing written", "path", o.DXFPath)
	}
	if o.SavePath != "" {
		m, failures := app.SaveModel(res)
		if err := writeModel(o.SavePath, m); err != nil {
			return err
		}
		logger.Info("model written", "path", o.SavePath, "failures", len(failures))
	}
	return nil
}

func readScript(path string, in io.Reader) (string, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(in)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read script: %w", err)
	}
	return string(b), nil
}

func writeReport(w io.Writer, format string, r Report) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(&r); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// savedModel is the file form of a re-encoded model.
type savedModel struct {
	Layers   []geom.Layer   `json:"layers" yaml:"layers"`
	Surfaces []geom.Surface `json:"surfaces" yaml:"surfaces"`
	Curves   []geom.Curve   `json:"curves" yaml:"curves"`
	Edges    []geom.Edge    `json:"edges" yaml:"edges"`
}

// writeModel writes m as YAML when path ends in .yaml or .yml, JSON
// otherwise.
func writeModel(path string, m *model.Model) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	defer f.Close()

	sm := savedModel{Layers: m.Layers, Surfaces: m.Surfaces, Curves: m.Curves, Edges: m.Edges}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(f)
		enc.SetIndent(2)
		if err := enc.Encode(&sm); err != nil {
			return fmt.Errorf("save model: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("save model: %w", err)
		}
	default:
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(&sm); err != nil {
			return fmt.Errorf("save model: %w", err)
		}
	}
	return f.Close()
}
