// Package config loads sweep configuration from YAML or CUE files.
//
// The file format is chosen by extension: .cue files are compiled with the
// CUE evaluator and must be concrete; anything else is parsed as YAML with
// unknown fields rejected. Both formats share one schema:
//
//	root: /data/pibronic
//	ledger: /data/pibronic/ledger.db
//	scheduler:
//	  program: srun
//	  interpreter: python3
//	  memory: 20GB
//	  oom_markers: ["Out Of Memory"]
//	barrier:
//	  initial_interval: 1s
//	  max_interval: 30s
//	  timeout: 10m
//	systems:
//	  displaced:
//	    - dataset: 3
//	      distributions: [0, 1]
//	sweep:
//	  kinds: [sos, trotter]
//	  temperatures: [300.0]
//	  basis_sizes: [80]
//	  bead_counts: [12]
//	  mode: async
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/gharib85/Pibronic/internal/gate"
	"github.com/gharib85/Pibronic/internal/scheduler"
)

// DefaultMemory is the memory request for model-solving jobs.
const DefaultMemory = "20GB"

// Config is the resolved, validated configuration.
type Config struct {
	Root      string
	Ledger    string
	Scheduler SchedulerConfig
	Barrier   gate.Barrier
	Systems   Systems
	Sweep     SweepConfig
}

// SchedulerConfig describes how jobs reach the batch scheduler.
type SchedulerConfig struct {
	Program     string
	Interpreter string
	Memory      string
	OOMMarkers  []string
}

// Dispatcher returns the dispatcher configuration.
func (s SchedulerConfig) Dispatcher() scheduler.Config {
	return scheduler.Config{
		Program:     s.Program,
		Interpreter: s.Interpreter,
		OOMMarkers:  append([]string(nil), s.OOMMarkers...),
	}
}

// SweepConfig is the default parameter space for the sweep command.
type SweepConfig struct {
	Kinds        []string
	Temperatures []float64
	BasisSizes   []int
	BeadCounts   []int
	Mode         scheduler.Mode
}

// fileConfig mirrors the on-disk schema. Durations stay strings so both
// decoders treat them the same way.
type fileConfig struct {
	Root      string                  `yaml:"root" json:"root"`
	Ledger    string                  `yaml:"ledger" json:"ledger"`
	Scheduler fileScheduler           `yaml:"scheduler" json:"scheduler"`
	Barrier   fileBarrier             `yaml:"barrier" json:"barrier"`
	Systems   map[string][]fileSystem `yaml:"systems" json:"systems"`
	Sweep     fileSweep               `yaml:"sweep" json:"sweep"`
}

type fileScheduler struct {
	Program     string   `yaml:"program" json:"program"`
	Interpreter string   `yaml:"interpreter" json:"interpreter"`
	Memory      string   `yaml:"memory" json:"memory"`
	OOMMarkers  []string `yaml:"oom_markers" json:"oom_markers"`
}

type fileBarrier struct {
	InitialInterval string `yaml:"initial_interval" json:"initial_interval"`
	MaxInterval     string `yaml:"max_interval" json:"max_interval"`
	Timeout         string `yaml:"timeout" json:"timeout"`
}

type fileSystem struct {
	Dataset       int   `yaml:"dataset" json:"dataset"`
	Distributions []int `yaml:"distributions" json:"distributions"`
}

type fileSweep struct {
	Kinds        []string  `yaml:"kinds" json:"kinds"`
	Temperatures []float64 `yaml:"temperatures" json:"temperatures"`
	BasisSizes   []int     `yaml:"basis_sizes" json:"basis_sizes"`
	BeadCounts   []int     `yaml:"bead_counts" json:"bead_counts"`
	Mode         string    `yaml:"mode" json:"mode"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	sched := scheduler.DefaultConfig()
	return &Config{
		Scheduler: SchedulerConfig{
			Program:     sched.Program,
			Interpreter: sched.Interpreter,
			Memory:      DefaultMemory,
			OOMMarkers:  sched.OOMMarkers,
		},
		Barrier: gate.DefaultBarrier(),
		Sweep:   SweepConfig{Mode: scheduler.Async},
	}
}

// Load reads the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw fileConfig
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		err = decodeCUE(path, data, &raw)
	} else {
		err = decodeYAML(data, &raw)
	}
	if err != nil {
		return nil, err
	}

	cfg, err := raw.resolve()
	if err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func decodeYAML(data []byte, raw *fileConfig) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

func decodeCUE(path string, data []byte, raw *fileConfig) error {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return fmt.Errorf("failed to compile CUE: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("CUE config is not concrete: %w", err)
	}
	if err := v.Decode(raw); err != nil {
		return fmt.Errorf("failed to decode CUE: %w", err)
	}
	return nil
}

func (f fileConfig) resolve() (*Config, error) {
	cfg := Default()
	cfg.Root = f.Root
	cfg.Ledger = f.Ledger

	if f.Scheduler.Program != "" {
		cfg.Scheduler.Program = f.Scheduler.Program
	}
	if f.Scheduler.Interpreter != "" {
		cfg.Scheduler.Interpreter = f.Scheduler.Interpreter
	}
	if f.Scheduler.Memory != "" {
		cfg.Scheduler.Memory = f.Scheduler.Memory
	}
	if len(f.Scheduler.OOMMarkers) > 0 {
		cfg.Scheduler.OOMMarkers = f.Scheduler.OOMMarkers
	}

	var err error
	if cfg.Barrier.InitialInterval, err = parseDuration("barrier.initial_interval", f.Barrier.InitialInterval, cfg.Barrier.InitialInterval); err != nil {
		return nil, err
	}
	if cfg.Barrier.MaxInterval, err = parseDuration("barrier.max_interval", f.Barrier.MaxInterval, cfg.Barrier.MaxInterval); err != nil {
		return nil, err
	}
	if cfg.Barrier.Timeout, err = parseDuration("barrier.timeout", f.Barrier.Timeout, cfg.Barrier.Timeout); err != nil {
		return nil, err
	}

	table := make(map[string][]System, len(f.Systems))
	for variant, systems := range f.Systems {
		for _, s := range systems {
			table[variant] = append(table[variant], System{Dataset: s.Dataset, Distributions: s.Distributions})
		}
	}
	if cfg.Systems, err = NewSystems(table); err != nil {
		return nil, err
	}

	if cfg.Sweep.Mode, err = scheduler.ParseMode(f.Sweep.Mode); err != nil {
		return nil, fmt.Errorf("sweep.mode: %w", err)
	}
	cfg.Sweep.Kinds = f.Sweep.Kinds
	cfg.Sweep.Temperatures = f.Sweep.Temperatures
	cfg.Sweep.BasisSizes = f.Sweep.BasisSizes
	cfg.Sweep.BeadCounts = f.Sweep.BeadCounts
	for _, t := range cfg.Sweep.Temperatures {
		if t <= 0 {
			return nil, fmt.Errorf("sweep.temperatures: %v is not positive", t)
		}
	}
	for _, b := range cfg.Sweep.BasisSizes {
		if b <= 0 {
			return nil, fmt.Errorf("sweep.basis_sizes: %d is not positive", b)
		}
	}
	for _, p := range cfg.Sweep.BeadCounts {
		if p <= 0 {
			return nil, fmt.Errorf("sweep.bead_counts: %d is not positive", p)
		}
	}

	return cfg, nil
}

func parseDuration(field, s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: %s is not positive", field, s)
	}
	return d, nil
}
