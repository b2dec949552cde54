// Package config loads conversion settings from an HCL file.
//
//	tolerance        = 0.01
//	include_meshes   = true
//	expand_instances = true
//	workers          = 8
//
//	preview {
//	  cells     = 120
//	  thickness = 0.5
//	}
//
//	save {
//	  preserve_holes = false
//	  layer          = "brepbridge"
//	}
//
// Every attribute and block is optional; absent values keep Default.
package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

// Preview controls the mesh preview produced by the kernel.
type Preview struct {
	Cells     *int     `hcl:"cells,optional"`
	Thickness *float64 `hcl:"thickness,optional"`
}

// Save controls the save path.
type Save struct {
	PreserveHoles *bool   `hcl:"preserve_holes,optional"`
	Layer         *string `hcl:"layer,optional"`
}

// file mirrors the HCL schema. Pointers distinguish absent attributes from
// zero values.
type file struct {
	Tolerance       *float64 `hcl:"tolerance,optional"`
	IncludeMeshes   *bool    `hcl:"include_meshes,optional"`
	ExpandInstances *bool    `hcl:"expand_instances,optional"`
	Workers         *int     `hcl:"workers,optional"`
	Preview         *Preview `hcl:"preview,block"`
	Save            *Save    `hcl:"save,block"`
}

// Config is the resolved configuration.
type Config struct {
	Tolerance       float64 `json:"tolerance" yaml:"tolerance"`
	IncludeMeshes   bool    `json:"include_meshes" yaml:"include_meshes"`
	ExpandInstances bool    `json:"expand_instances" yaml:"expand_instances"`
	// Workers bounds concurrent conversions; zero means GOMAXPROCS.
	Workers          int     `json:"workers" yaml:"workers"`
	PreviewCells     int     `json:"preview_cells" yaml:"preview_cells"`
	PreviewThickness float64 `json:"preview_thickness,omitempty" yaml:"preview_thickness,omitempty"`
	PreserveHoles    bool    `json:"preserve_holes" yaml:"preserve_holes"`
	SaveLayer        string  `json:"save_layer,omitempty" yaml:"save_layer,omitempty"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Tolerance:       0.01,
		ExpandInstances: true,
		PreviewCells:    100,
	}
}

// Load reads the HCL file at path over Default.
func Load(path string) (Config, error) {
	var f file
	if err := hclsimple.DecodeFile(path, nil, &f); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return f.apply(Default())
}

// Parse decodes HCL source over Default. filename only labels diagnostics
// and must end in .hcl.
func Parse(filename string, src []byte) (Config, error) {
	var f file
	if err := hclsimple.Decode(filename, src, nil, &f); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return f.apply(Default())
}

func (f *file) apply(c Config) (Config, error) {
	if f.Tolerance != nil {
		c.Tolerance = *f.Tolerance
	}
	if f.IncludeMeshes != nil {
		c.IncludeMeshes = *f.IncludeMeshes
	}
	if f.ExpandInstances != nil {
		c.ExpandInstances = *f.ExpandInstances
	}
	if f.Workers != nil {
		c.Workers = *f.Workers
	}
	if p := f.Preview; p != nil {
		if p.Cells != nil {
			c.PreviewCells = *p.Cells
		}
		if p.Thickness != nil {
			c.PreviewThickness = *p.Thickness
		}
	}
	if s := f.Save; s != nil {
		if s.PreserveHoles != nil {
			c.PreserveHoles = *s.PreserveHoles
		}
		if s.Layer != nil {
			c.SaveLayer = *s.Layer
		}
	}
	return c, c.Validate()
}

// Validate rejects settings no conversion can run with.
func (c Config) Validate() error {
	var errs []error
	if math.IsNaN(c.Tolerance) || math.IsInf(c.Tolerance, 0) || c.Tolerance <= 0 {
		errs = append(errs, fmt.Errorf("tolerance %g must be finite and positive", c.Tolerance))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers %d must not be negative", c.Workers))
	}
	if c.PreviewCells < 2 {
		errs = append(errs, fmt.Errorf("preview cells %d must be at least 2", c.PreviewCells))
	}
	if c.PreviewThickness < 0 {
		errs = append(errs, fmt.Errorf("preview thickness %g must not be negative", c.PreviewThickness))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
