package cli

import (
	"context"
	"os"

	"github.com/anchorgrid/anchorsched/internal/batchrun"
	"github.com/anchorgrid/anchorsched/internal/config"
	"github.com/anchorgrid/anchorsched/internal/core"
	"github.com/anchorgrid/anchorsched/internal/logx"
)

// CLIResult is the outcome of one Execute call, suitable for both the
// process exit path and black-box tests.
type CLIResult struct {
	ExitCode int
	State    core.BatchRunState
}

// Execute runs one batch run to completion against the built-in stub
// collaborators and reports progress to stderr as it goes.
//
// The stub collaborators exist so this binary is exercisable standalone,
// without a real tile-generation backend wired in: ExecuteAnchor always
// succeeds on the first attempt, and RefreshParentLevel collapses each 2x2
// block of child tiles into one parent tile. A real deployment replaces
// both via batchrun.Input before calling batchrun.Start directly.
func Execute(ctx context.Context, inv Invocation) (CLIResult, error) {
	res := CLIResult{ExitCode: ExitInternalError}

	logger := logx.New(os.Stderr, parseLevel(inv.LogLevel)).With("cli")

	defaults, err := loadDefaults(inv.ConfigPath)
	if err != nil {
		res.ExitCode = ExitConfigError
		return res, err
	}

	in := mergeInput(inv, defaults)
	in.ExecuteAnchor = stubExecuteAnchor
	in.RefreshParentLevel = stubRefreshParentLevel
	in.Logger = logger
	in.OnState = func(st core.BatchRunState) {
		logger.Info().
			Str("status", st.Status.String()).
			Int("pending", st.Generate.Pending).
			Int("running", st.Generate.Running).
			Int("success", st.Generate.Success).
			Int("failed", st.Generate.Failed).
			Int("blocked", st.Generate.Blocked).
			Msg("progress")
	}

	h, err := batchrun.Start(ctx, in)
	if err != nil {
		res.ExitCode = ExitInvalidInvocation
		return res, err
	}

	st, err := h.Result()
	res.State = st

	switch st.Status {
	case core.RunCompleted:
		res.ExitCode = ExitSuccess
	case core.RunCancelled:
		res.ExitCode = ExitRunFailure
	default:
		res.ExitCode = ExitRunFailure
	}
	if err != nil {
		res.ExitCode = ExitRunFailure
	}
	return res, err
}

func loadDefaults(path string) (config.Defaults, error) {
	if path == "" {
		return config.Defaults{}, nil
	}
	return config.Load(path)
}

// mergeInput layers flag-supplied values over config-file defaults: an
// explicit flag always wins, a zero flag value falls back to the config
// file, and an absent config value falls back to batchrun.Input's own
// defaulting.
func mergeInput(inv Invocation, d config.Defaults) batchrun.Input {
	schedulingMode := inv.SchedulingMode
	if schedulingMode == "" {
		schedulingMode = d.SchedulingMode
	}
	mode, _ := core.ParseSchedulingMode(schedulingMode)

	modelVariant := inv.ModelVariant
	if modelVariant == "" {
		modelVariant = d.ModelVariant
	}

	return batchrun.Input{
		OriginX:  inv.OriginX,
		OriginY:  inv.OriginY,
		Layers:   inv.Layers,
		Z:        inv.Z,
		MapWidth: inv.MapWidth, MapHeight: inv.MapHeight,
		Prompt:       inv.Prompt,
		ModelVariant: core.ModelVariant(modelVariant),

		MaxParallel:             firstNonZero(inv.MaxParallel, d.MaxParallel),
		MaxGenerateRetries:      firstSetInt(inv.MaxGenerateRetries, d.MaxGenerateRetries),
		ParentJobRetries:        firstSetInt(inv.ParentJobRetries, d.ParentJobRetries),
		ParentWorkerConcurrency: firstNonZero(inv.ParentWorkerConcurrency, d.ParentWorkerConcurrency),
		ParentDebounceMs:        firstSetInt(inv.ParentDebounceMs, d.ParentDebounceMs),
		ParentWaveBatchSize:     firstNonZero(inv.ParentWaveBatchSize, d.ParentWaveBatchSize),
		ParentLeafBatchSize:     firstNonZero(inv.ParentLeafBatchSize, d.ParentLeafBatchSize),
		ParentCascadeDepth:      firstSetInt(inv.ParentCascadeDepth, d.ParentCascadeDepth),
		SchedulingMode:          mode,

		ReviewEnabled: inv.ReviewEnabled,
	}
}

// firstNonZero is for tunables whose documented range excludes zero, so a
// zero flag value unambiguously means "fall through to the config file,
// then to batchrun's own default".
func firstNonZero(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

// firstSetInt is for tunables whose documented range includes zero as a
// distinct, meaningful value: the flag pointer wins if non-nil (even when
// it points at zero), else the config pointer wins on the same terms, else
// nil falls through to batchrun's own default.
func firstSetInt(flag, cfg *int) *int {
	if flag != nil {
		return flag
	}
	return cfg
}

func parseLevel(s string) logx.Level {
	switch s {
	case "debug":
		return logx.LevelDebug
	case "warn":
		return logx.LevelWarn
	case "error":
		return logx.LevelError
	default:
		return logx.LevelInfo
	}
}

func stubExecuteAnchor(ctx context.Context, a core.Anchor, attempt int) (core.ExecuteOutcome, error) {
	return core.ExecuteOutcome{}, nil
}

func stubRefreshParentLevel(ctx context.Context, childZ int, childTiles []core.TileCoord) ([]core.TileCoord, error) {
	seen := make(map[core.TileCoord]struct{}, len(childTiles))
	parents := make([]core.TileCoord, 0, len(childTiles))
	for _, t := range childTiles {
		p := core.TileCoord{X: floorDiv2(t.X), Y: floorDiv2(t.Y)}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		parents = append(parents, p)
	}
	return parents, nil
}

func floorDiv2(n int) int {
	if n >= 0 {
		return n / 2
	}
	return -((-n + 1) / 2)
}
