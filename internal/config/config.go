// Package config loads operator-tunable defaults for a batch run from a
// YAML file, read once at process start - the same "canonicalize inputs at
// the boundary" discipline the CLI invocation layer applies to flags.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults mirrors the subset of batchrun.Input that an operator may want
// to pin without touching code. Most zero values mean "use the built-in
// default" - see batchrun.Input's own defaulting for the built-ins. The
// four fields whose documented range includes zero as a distinct,
// meaningful value are pointers: an absent YAML key decodes to nil ("use
// the built-in default"), while an explicit `key: 0` decodes to a non-nil
// pointer to zero and is honored as given.
type Defaults struct {
	MaxParallel             int    `yaml:"max_parallel"`
	MaxGenerateRetries      *int   `yaml:"max_generate_retries"`
	ParentJobRetries        *int   `yaml:"parent_job_retries"`
	ParentWorkerConcurrency int    `yaml:"parent_worker_concurrency"`
	ParentDebounceMs        *int   `yaml:"parent_debounce_ms"`
	ParentWaveBatchSize     int    `yaml:"parent_wave_batch_size"`
	ParentLeafBatchSize     int    `yaml:"parent_leaf_batch_size"`
	ParentCascadeDepth      *int   `yaml:"parent_cascade_depth"`
	SchedulingMode          string `yaml:"scheduling_mode"`
	ModelVariant            string `yaml:"model_variant"`
}

// Load reads and parses a Defaults file at path. Unknown keys are rejected
// so a typo in an operator's config file fails loudly rather than silently
// being ignored.
func Load(path string) (Defaults, error) {
	var d Defaults
	b, err := os.ReadFile(path)
	if err != nil {
		return d, fmt.Errorf("reading config %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return d, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return d, nil
}
