package main

import (
	"math"
	"os"
	"testing"

	"github.com/chazu/brepbridge/pkg/config"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func readExample(t *testing.T, name string) string {
	t.Helper()
	source, err := os.ReadFile("examples/" + name)
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return string(source)
}

func mustConvert(t *testing.T, app *App, source string) Report {
	t.Helper()
	report, res := app.Convert(source)
	if len(report.Errors) > 0 {
		for _, e := range report.Errors {
			t.Errorf("eval error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}
	if res == nil {
		t.Fatal("Convert returned no load result without errors")
	}
	return report
}

// TestE2EPanelExample exercises the full pipeline: script → engine → model
// → convert → report.
func TestE2EPanelExample(t *testing.T) {
	app := NewApp(config.Default())
	report := mustConvert(t, app, readExample(t, "panel.brep"))

	approx := cmpopts.EquateApprox(0, 1e-6)

	wantSheet := []SurfaceData{{
		Index:  0,
		Layer:  "sheets",
		Area:   16,
		Normal: [3]float64{0, 0, 1},
		Min:    [3]float64{0, 30, 0},
		Max:    [3]float64{4, 34, 0},
	}}
	if diff := cmp.Diff(wantSheet, report.Surfaces, approx); diff != "" {
		t.Errorf("top-level surfaces (-want +got):\n%s", diff)
	}
	if report.Curves != 1 || report.Edges != 1 {
		t.Errorf("curves = %d, edges = %d, want 1 and 1", report.Curves, report.Edges)
	}
	if diff := cmp.Diff([]string{"panels", "sheets"}, report.Layers); diff != "" {
		t.Errorf("layers (-want +got):\n%s", diff)
	}
	if len(report.Failures) != 0 || len(report.Warnings) != 0 {
		t.Errorf("failures = %v, warnings = %v", report.Failures, report.Warnings)
	}
	if len(report.Meshes) != 0 {
		t.Errorf("expected no meshes without preview, got %d", len(report.Meshes))
	}

	if len(report.Instances) != 1 {
		t.Fatalf("expected 1 instance, got %d", len(report.Instances))
	}
	inst := report.Instances[0]
	if inst.Name != "p1" || inst.ParentName != "panel" || inst.Scale != 2 {
		t.Errorf("instance = %+v", inst.Instance)
	}
	if inst.GUID == "" {
		t.Error("instance has no GUID")
	}
	if math.Abs(inst.Area-384) > 1e-6 {
		t.Errorf("instance area = %v, want 384", inst.Area)
	}
	wantPanel := []SurfaceData{{
		Owner:  `instance "p1"`,
		Index:  0,
		Layer:  "panels",
		Area:   384,
		Normal: [3]float64{0, 0, 1},
		Min:    [3]float64{5, 0, 0},
		Max:    [3]float64{25, 20, 0},
		Holes:  1,
	}}
	if diff := cmp.Diff(wantPanel, inst.Surfaces, approx); diff != "" {
		t.Errorf("instance surfaces (-want +got):\n%s", diff)
	}
}

func TestE2EPreview(t *testing.T) {
	cfg := config.Default()
	cfg.PreviewCells = 20
	app := NewApp(cfg)
	app.Preview = true
	report := mustConvert(t, app, readExample(t, "panel.brep"))

	if len(report.Meshes) != 2 {
		t.Fatalf("expected 2 preview meshes, got %d", len(report.Meshes))
	}
	wantNames := []string{"preview / surface 0", `preview / instance "p1" / surface 0`}
	for i, m := range report.Meshes {
		if m.PartName != wantNames[i] {
			t.Errorf("mesh %d: part name %q, want %q", i, m.PartName, wantNames[i])
		}
		if !m.Preview {
			t.Errorf("mesh %d: not marked as preview", i)
		}
		if len(m.Vertices) == 0 || len(m.Indices) == 0 {
			t.Errorf("mesh %d: empty geometry", i)
		}
		if m.Color != colorPalette[i] {
			t.Errorf("mesh %d: color %q, want %q", i, m.Color, colorPalette[i])
		}
	}
}

func TestE2EInstancesNotExpanded(t *testing.T) {
	cfg := config.Default()
	cfg.ExpandInstances = false
	report := mustConvert(t, NewApp(cfg), readExample(t, "panel.brep"))

	if len(report.Instances) != 1 {
		t.Fatalf("expected 1 instance, got %d", len(report.Instances))
	}
	if inst := report.Instances[0]; len(inst.Surfaces) != 0 || inst.Area != 0 {
		t.Errorf("unexpanded instance carries geometry: %+v", inst)
	}
}

func TestE2EProgress(t *testing.T) {
	app := NewApp(config.Default())
	var total, calls int
	app.Progress = func(n int) func() {
		total = n
		return func() { calls++ }
	}
	mustConvert(t, app, readExample(t, "panel.brep"))

	// One face, one curve, one edge and one instance.
	if total != 4 {
		t.Errorf("progress total = %d, want 4", total)
	}
	if calls != total {
		t.Errorf("progress called %d times, want %d", calls, total)
	}
}

// TestE2EEmptySource ensures the pipeline handles empty input gracefully.
func TestE2EEmptySource(t *testing.T) {
	app := NewApp(config.Default())
	report := mustConvert(t, app, "")

	if report.Surfaces == nil || report.Meshes == nil || report.Layers == nil ||
		report.Instances == nil || report.Failures == nil || report.Warnings == nil || report.Errors == nil {
		t.Errorf("report has nil slices: %+v", report)
	}
	if len(report.Surfaces)+len(report.Instances)+report.Curves+report.Edges != 0 {
		t.Errorf("expected an empty report, got %+v", report)
	}
}
