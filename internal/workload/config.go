// SPDX-License-Identifier: Apache-2.0

// Package workload drives lists through configurable append workloads.
package workload

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Allocator names accepted in a workload.
const (
	AllocatorHeap      = "heap"
	AllocatorArena     = "arena"
	AllocatorMmap      = "mmap"
	AllocatorRecycling = "recycling"
)

// Config is a set of workloads run with bounded parallelism.
type Config struct {
	// Parallel bounds the number of workloads running at once. 0 means one per workload.
	Parallel  int        `yaml:"parallel"`
	Workloads []Workload `yaml:"workloads"`
}

// Workload appends Elements values to a fresh list Repeat times.
type Workload struct {
	Name      string `yaml:"name"`
	Elements  int    `yaml:"elements"`
	Presize   int    `yaml:"presize"`
	Allocator string `yaml:"allocator"`
	Repeat    int    `yaml:"repeat"`
	// MemoryLimit caps the bytes the list may claim beyond its inline block. 0 means no limit.
	MemoryLimit int `yaml:"memory_limit"`
}

// Default returns the workloads run when no configuration file is given.
func Default() *Config {
	return &Config{
		Workloads: []Workload{
			{Name: "inline", Elements: 500, Allocator: AllocatorHeap, Repeat: 1000},
			{Name: "boundary", Elements: 513, Allocator: AllocatorHeap, Repeat: 1000},
			{Name: "large-heap", Elements: 1 << 20, Allocator: AllocatorHeap, Repeat: 3},
			{Name: "large-arena", Elements: 1 << 20, Allocator: AllocatorArena, Repeat: 3},
			{Name: "large-recycling", Elements: 1 << 20, Allocator: AllocatorRecycling, Repeat: 3},
			{Name: "presized", Elements: 1 << 16, Presize: 1400, Allocator: AllocatorHeap, Repeat: 10},
		},
	}
}

// Parse decodes a YAML configuration and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse workload config: %w", err)
	}
	for i := range cfg.Workloads {
		w := &cfg.Workloads[i]
		if w.Allocator == "" {
			w.Allocator = AllocatorHeap
		}
		if w.Repeat == 0 {
			w.Repeat = 1
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workload config: %w", err)
	}
	return Parse(data)
}

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid workload config")

// Validate checks every workload and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Parallel < 0 {
		errs = append(errs, fmt.Errorf("%w: parallel %d is negative", ErrInvalidConfig, c.Parallel))
	}
	if len(c.Workloads) == 0 {
		errs = append(errs, fmt.Errorf("%w: no workloads", ErrInvalidConfig))
	}
	seen := make(map[string]bool, len(c.Workloads))
	for i, w := range c.Workloads {
		if w.Name == "" {
			errs = append(errs, fmt.Errorf("%w: workload %d has no name", ErrInvalidConfig, i))
		} else if seen[w.Name] {
			errs = append(errs, fmt.Errorf("%w: duplicate workload %q", ErrInvalidConfig, w.Name))
		}
		seen[w.Name] = true
		if w.Elements < 0 || w.Presize < 0 || w.Repeat < 0 || w.MemoryLimit < 0 {
			errs = append(errs, fmt.Errorf("%w: workload %q has a negative size", ErrInvalidConfig, w.Name))
		}
		switch w.Allocator {
		case AllocatorHeap, AllocatorArena, AllocatorMmap, AllocatorRecycling:
		default:
			errs = append(errs, fmt.Errorf("%w: workload %q uses unknown allocator %q", ErrInvalidConfig, w.Name, w.Allocator))
		}
	}
	return errors.Join(errs...)
}
