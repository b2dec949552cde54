package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestRunArgumentErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no script", nil},
		{"two scripts", []string{"a.brep", "b.brep"}},
		{"unknown flag", []string{"-colour", "red", "a.brep"}},
		{"bad format", []string{"-format", "xml", "a.brep"}},
		{"bad log format", []string{"-log-format", "xml", "a.brep"}},
		{"bad log level", []string{"-log-level", "loud", "a.brep"}},
		{"missing config", []string{"-config", "/does/not/exist.hcl", "examples/panel.brep"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			err := run(&out, &errOut, strings.NewReader(""), tt.args)
			var exitErr *ExitError
			if !errors.As(err, &exitErr) {
				t.Fatalf("run() = %v, want an ExitError", err)
			}
			if exitErr.Code != 2 {
				t.Errorf("exit code = %d, want 2", exitErr.Code)
			}
		})
	}
}

func TestRunHelp(t *testing.T) {
	var out, errOut bytes.Buffer
	if err := run(&out, &errOut, strings.NewReader(""), []string{"-h"}); err != nil {
		t.Fatalf("run(-h) = %v", err)
	}
	if !strings.Contains(errOut.String(), "Usage:") {
		t.Errorf("help output lacks usage: %q", errOut.String())
	}
}

func TestRunJSONReport(t *testing.T) {
	var out, errOut bytes.Buffer
	args := []string{"-config", "examples/brepbridge.hcl", "examples/panel.brep"}
	if err := run(&out, &errOut, strings.NewReader(""), args); err != nil {
		t.Fatalf("run() = %v\n%s", err, errOut.String())
	}
	var report Report
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("report is not JSON: %v\n%s", err, out.String())
	}
	if len(report.Surfaces) != 1 || len(report.Instances) != 1 {
		t.Errorf("report = %+v", report)
	}
	if report.Instances[0].Name != "p1" {
		t.Errorf("instance name = %q, want p1", report.Instances[0].Name)
	}
}

func TestRunStdinYAML(t *testing.T) {
	src := `(face :outer (polyloop (vec3 0 0 0) (vec3 2 0 0) (vec3 2 2 0) (vec3 0 2 0)))`
	var out, errOut bytes.Buffer
	if err := run(&out, &errOut, strings.NewReader(src), []string{"-format", "yaml", "-"}); err != nil {
		t.Fatalf("run() = %v\n%s", err, errOut.String())
	}
	var report struct {
		Surfaces []struct {
			Area float64 `yaml:"area"`
		} `yaml:"surfaces"`
	}
	if err := yaml.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("report is not YAML: %v\n%s", err, out.String())
	}
	if len(report.Surfaces) != 1 || report.Surfaces[0].Area != 4 {
		t.Errorf("surfaces = %+v, want one of area 4", report.Surfaces)
	}
}

func TestRunConversionFailure(t *testing.T) {
	var out, errOut bytes.Buffer
	err := run(&out, &errOut, strings.NewReader("(face :outer"), []string{"-"})
	if !errors.Is(err, ErrConversionFailed) {
		t.Fatalf("run() = %v, want ErrConversionFailed", err)
	}
	var report Report
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}
	if len(report.Errors) == 0 {
		t.Error("report carries no errors")
	}
}

func TestRunWritesDXFAndModel(t *testing.T) {
	dir := t.TempDir()
	dxfPath := filepath.Join(dir, "panel.dxf")
	savePath := filepath.Join(dir, "panel.yaml")

	var out, errOut bytes.Buffer
	args := []string{
		"-config", "examples/brepbridge.hcl",
		"-dxf", dxfPath,
		"-save", savePath,
		"-log-level", "info",
		"-log-format", "json",
		"examples/panel.brep",
	}
	if err := run(&out, &errOut, strings.NewReader(""), args); err != nil {
		t.Fatalf("run() = %v\n%s", err, errOut.String())
	}

	drawing, err := os.ReadFile(dxfPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, layer := range []string{"panels", "sheets", "curves", "edges"} {
		if !bytes.Contains(drawing, []byte(layer)) {
			t.Errorf("drawing lacks layer %q", layer)
		}
	}

	saved, err := os.ReadFile(savePath)
	if err != nil {
		t.Fatal(err)
	}
	var sm struct {
		Layers   []map[string]any `yaml:"layers"`
		Surfaces []map[string]any `yaml:"surfaces"`
		Curves   []map[string]any `yaml:"curves"`
		Edges    []map[string]any `yaml:"edges"`
	}
	if err := yaml.Unmarshal(saved, &sm); err != nil {
		t.Fatalf("saved model is not YAML: %v", err)
	}
	if len(sm.Surfaces) != 1 || len(sm.Layers) != 1 {
		t.Errorf("saved %d surfaces on %d layers, want 1 and 1", len(sm.Surfaces), len(sm.Layers))
	}
	// The polyline members and the edge are saved as edges.
	if got := len(sm.Curves) + len(sm.Edges); got != 3 {
		t.Errorf("saved %d curves and edges, want 3", got)
	}

	if !strings.Contains(errOut.String(), `"msg":"model written"`) {
		t.Errorf("log lacks the model written record:\n%s", errOut.String())
	}
}
