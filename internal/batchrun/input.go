package batchrun

import (
	"strings"

	"github.com/anchorgrid/anchorsched/internal/core"
	"github.com/anchorgrid/anchorsched/internal/logx"
)

// Input is the full set of parameters accepted by Start. Tunables whose
// documented range starts at 1 (MaxParallel, ParentWorkerConcurrency,
// ParentWaveBatchSize, ParentLeafBatchSize) treat a zero value as "use the
// documented default", since zero is never a valid value for them anyway.
//
// Tunables whose documented range starts at 0 (MaxGenerateRetries,
// ParentJobRetries, ParentDebounceMs, ParentCascadeDepth) have a real,
// distinct, clamped meaning at zero - "no retries", "no debounce", "no
// cascade" - so a plain int field could never distinguish an explicit zero
// from "unset". Those four are *int: nil means "use the documented
// default", a non-nil pointer (including one pointing at zero) is clamped
// and honored as given.
type Input struct {
	OriginX, OriginY int
	Layers           int
	Z                int // leaf zoom level
	MapWidth         int
	MapHeight        int
	Prompt           string
	ModelVariant     core.ModelVariant

	MaxParallel             int
	MaxGenerateRetries      *int
	ParentJobRetries        *int
	ParentWorkerConcurrency int
	ParentDebounceMs        *int
	ParentWaveBatchSize     int
	ParentLeafBatchSize     int
	ParentCascadeDepth      *int
	SchedulingMode          core.SchedulingMode

	ReviewEnabled bool

	ExecuteAnchor      core.ExecuteAnchorFunc
	RefreshParentLevel core.RefreshParentLevelFunc
	OnState            core.StateObserver

	Logger logx.Logger
}

// resolved holds the input after validation, defaulting, and clamping - the
// values every other component actually operates on.
type resolved struct {
	originX, originY int
	layers           int
	z                int
	mapWidth, mapHeight int
	prompt           string
	modelVariant     core.ModelVariant

	maxParallel             int
	maxGenerateRetries      int
	parentJobRetries        int
	parentWorkerConcurrency int
	parentDebounceMs        int
	parentWaveBatchSize     int
	parentLeafBatchSize     int
	parentCascadeDepth      int
	schedulingMode          core.SchedulingMode

	reviewEnabled bool

	executeAnchor      core.ExecuteAnchorFunc
	refreshParentLevel core.RefreshParentLevelFunc
	onState            core.StateObserver

	logger logx.Logger
}

// clampDefault treats a zero value as "use the default", then clamps an
// explicit value into [lo, hi]. Only valid for tunables whose documented
// range excludes zero, so "unset" and "explicit zero" never need telling
// apart.
func clampDefault(value, lo, hi, def int) int {
	v := value
	if v == 0 {
		v = def
	}
	return clampRange(v, lo, hi)
}

// clampOptional treats a nil pointer as "use the default", then clamps the
// pointee (including an explicit zero) into [lo, hi]. Use for tunables
// whose documented range includes zero as a distinct, meaningful value.
func clampOptional(value *int, lo, hi, def int) int {
	v := def
	if value != nil {
		v = *value
	}
	return clampRange(v, lo, hi)
}

func clampRange(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

func resolveInput(in Input) (resolved, error) {
	if in.MapWidth <= 0 || in.MapHeight <= 0 {
		return resolved{}, core.Invalidf("map_width and map_height must be positive")
	}
	if in.OriginX < 0 || in.OriginX >= in.MapWidth || in.OriginY < 0 || in.OriginY >= in.MapHeight {
		return resolved{}, core.Invalidf("origin (%d, %d) must lie inside [0, %d) x [0, %d)", in.OriginX, in.OriginY, in.MapWidth, in.MapHeight)
	}
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return resolved{}, core.Invalidf("prompt must be non-empty")
	}
	if in.Z < 0 {
		return resolved{}, core.Invalidf("z must be non-negative")
	}

	modelVariant := in.ModelVariant
	if modelVariant == "" {
		modelVariant = core.ModelStandard
	}

	schedulingMode := in.SchedulingMode

	r := resolved{
		originX: in.OriginX, originY: in.OriginY,
		layers:    clampRange(in.Layers, 0, 256),
		z:         in.Z,
		mapWidth:  in.MapWidth, mapHeight: in.MapHeight,
		prompt:       prompt,
		modelVariant: modelVariant,

		maxParallel:             clampDefault(in.MaxParallel, 1, 16, 4),
		maxGenerateRetries:      clampOptional(in.MaxGenerateRetries, 0, 10, 3),
		parentJobRetries:        clampOptional(in.ParentJobRetries, 0, 10, 2),
		parentWorkerConcurrency: clampDefault(in.ParentWorkerConcurrency, 1, 4, 1),
		parentDebounceMs:        clampOptional(in.ParentDebounceMs, 0, 60000, 1000),
		parentWaveBatchSize:     clampDefault(in.ParentWaveBatchSize, 1, 64, 3),
		parentLeafBatchSize:     clampDefault(in.ParentLeafBatchSize, 1, 10000, 256),
		parentCascadeDepth:      clampOptional(in.ParentCascadeDepth, 0, in.Z, 2),
		schedulingMode:          schedulingMode,

		reviewEnabled: in.ReviewEnabled,

		executeAnchor:      in.ExecuteAnchor,
		refreshParentLevel: in.RefreshParentLevel,
		onState:            in.OnState,

		logger: in.Logger,
	}
	return r, nil
}
