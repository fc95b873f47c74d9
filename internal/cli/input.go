// Package cli is the deterministic boundary between process argv and a
// batchrun.Input: it canonicalizes flags into an Invocation before any
// scheduling logic runs, the same discipline the rest of this codebase
// applies to its other collaborator boundaries.
package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/anchorgrid/anchorsched/internal/core"
)

const (
	ExitSuccess           = 0
	ExitRunFailure        = 1
	ExitInvalidInvocation = 2
	ExitConfigError       = 3
	ExitInternalError     = 4
)

// Invocation is the fully canonicalized, deterministic description of one
// batch-run CLI invocation.
type Invocation struct {
	OriginX, OriginY int
	Layers           int
	Z                int
	MapWidth         int
	MapHeight        int
	Prompt           string
	ModelVariant     string

	MaxParallel             int
	MaxGenerateRetries      *int
	ParentJobRetries        *int
	ParentWorkerConcurrency int
	ParentDebounceMs        *int
	ParentWaveBatchSize     int
	ParentLeafBatchSize     int
	ParentCascadeDepth      *int
	SchedulingMode          string

	ReviewEnabled bool

	ConfigPath string
	LogLevel   string
}

// InvocationError carries the semantic exit code a parse failure should map
// to, so Run can report it without re-deriving it from the error text.
type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

// ParseInvocation parses CLI flags into a canonical Invocation. It does not
// read environment variables or the process working directory, so the same
// argv always produces the same Invocation.
func ParseInvocation(args []string) (Invocation, error) {
	fs := pflag.NewFlagSet("anchorsched", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var inv Invocation
	var schedulingMode string
	var modelVariant string

	// Tunables whose documented range includes zero as a distinct,
	// meaningful value (see batchrun.Input's doc comment) are parsed into a
	// plain local var, then only copied onto the Invocation as a non-nil
	// pointer if pflag reports the flag as actually having been passed -
	// otherwise an explicit "--max-generate-retries 0" would be
	// indistinguishable from never passing the flag at all.
	var maxGenerateRetries, parentJobRetries, parentDebounceMs, parentCascadeDepth int

	fs.IntVar(&inv.OriginX, "origin-x", 0, "origin tile X coordinate")
	fs.IntVar(&inv.OriginY, "origin-y", 0, "origin tile Y coordinate")
	fs.IntVar(&inv.Layers, "layers", 0, "number of anchor rings around the origin")
	fs.IntVar(&inv.Z, "z", 0, "leaf zoom level")
	fs.IntVar(&inv.MapWidth, "map-width", 0, "map width in tiles (required)")
	fs.IntVar(&inv.MapHeight, "map-height", 0, "map height in tiles (required)")
	fs.StringVar(&inv.Prompt, "prompt", "", "generation prompt (required)")
	fs.StringVar(&modelVariant, "model-variant", "", "initial model variant: standard|pro|flash_preview")

	fs.IntVar(&inv.MaxParallel, "max-parallel", 0, "max anchors in flight at once (0 = default)")
	fs.IntVar(&maxGenerateRetries, "max-generate-retries", 0, "extra attempts per anchor beyond the first (unset = default)")
	fs.IntVar(&parentJobRetries, "parent-job-retries", 0, "extra attempts per parent refresh job (unset = default)")
	fs.IntVar(&inv.ParentWorkerConcurrency, "parent-worker-concurrency", 0, "parent refresh worker pool size (0 = default)")
	fs.IntVar(&parentDebounceMs, "parent-debounce-ms", 0, "parent flush debounce window in ms (unset = default)")
	fs.IntVar(&inv.ParentWaveBatchSize, "parent-wave-batch-size", 0, "waves accumulated before a parent flush (0 = default)")
	fs.IntVar(&inv.ParentLeafBatchSize, "parent-leaf-batch-size", 0, "dirty leaves accumulated before a parent flush (0 = default)")
	fs.IntVar(&parentCascadeDepth, "parent-cascade-depth", 0, "zoom levels cascaded per regular flush (unset = default)")
	fs.StringVar(&schedulingMode, "scheduling-mode", "", "wave_barrier|rolling_fill (default wave_barrier)")
	fs.BoolVar(&inv.ReviewEnabled, "review", false, "gate each anchor preview behind the review queue")

	fs.StringVar(&inv.ConfigPath, "config", "", "YAML defaults file (optional)")
	fs.StringVar(&inv.LogLevel, "log-level", "info", "debug|info|warn|error")

	if err := fs.Parse(args); err != nil {
		return Invocation{}, invalidInvocationf("%v", err)
	}
	if fs.NArg() != 0 {
		return Invocation{}, invalidInvocationf("unexpected positional arguments: %q", strings.Join(fs.Args(), " "))
	}

	if fs.Changed("max-generate-retries") {
		inv.MaxGenerateRetries = &maxGenerateRetries
	}
	if fs.Changed("parent-job-retries") {
		inv.ParentJobRetries = &parentJobRetries
	}
	if fs.Changed("parent-debounce-ms") {
		inv.ParentDebounceMs = &parentDebounceMs
	}
	if fs.Changed("parent-cascade-depth") {
		inv.ParentCascadeDepth = &parentCascadeDepth
	}

	if inv.MapWidth <= 0 || inv.MapHeight <= 0 {
		return Invocation{}, invalidInvocationf("--map-width and --map-height are required and must be positive")
	}
	if strings.TrimSpace(inv.Prompt) == "" {
		return Invocation{}, invalidInvocationf("--prompt is required")
	}

	if schedulingMode != "" {
		if _, ok := core.ParseSchedulingMode(schedulingMode); !ok {
			return Invocation{}, invalidInvocationf("invalid --scheduling-mode %q (expected wave_barrier|rolling_fill)", schedulingMode)
		}
	}
	inv.SchedulingMode = schedulingMode

	switch core.ModelVariant(modelVariant) {
	case "", core.ModelStandard, core.ModelPro, core.ModelFlashPreview:
	default:
		return Invocation{}, invalidInvocationf("invalid --model-variant %q", modelVariant)
	}
	inv.ModelVariant = modelVariant

	return inv, nil
}

// ExitCode extracts a semantic exit code from a ParseInvocation error. If
// the error is not a known invocation error, it returns ExitInternalError.
func ExitCode(err error) int {
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil {
		if invErr.ExitCode != 0 {
			return invErr.ExitCode
		}
		return ExitInvalidInvocation
	}
	if err == nil {
		return ExitSuccess
	}
	return ExitInternalError
}
