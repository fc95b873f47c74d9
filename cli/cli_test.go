package cli_test

import (
	"context"
	"testing"

	icl "github.com/anchorgrid/anchorsched/internal/cli"
)

func baseArgs(workDir string) []string {
	return []string{
		"--origin-x", "10", "--origin-y", "10",
		"--layers", "1",
		"--map-width", "64", "--map-height", "64",
		"--prompt", "a mossy stone courtyard",
	}
}

func TestRun_ValidInvocation_CompletesSuccessfully(t *testing.T) {
	res, err := icl.Run(context.Background(), baseArgs(t.TempDir()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != icl.ExitSuccess {
		t.Fatalf("exit code = %d, want %d", res.ExitCode, icl.ExitSuccess)
	}
	if res.State.Generate.Success != 9 {
		t.Fatalf("Generate.Success = %d, want 9", res.State.Generate.Success)
	}
}

func TestRun_MissingRequiredFlags_ReturnsInvalidInvocation(t *testing.T) {
	args := []string{"--origin-x", "10", "--origin-y", "10"}

	res1, err1 := icl.Run(context.Background(), args)
	res2, err2 := icl.Run(context.Background(), args)

	if res1.ExitCode != icl.ExitInvalidInvocation || res2.ExitCode != icl.ExitInvalidInvocation {
		t.Fatalf("expected exit %d, got %d and %d", icl.ExitInvalidInvocation, res1.ExitCode, res2.ExitCode)
	}
	if err1 == nil || err2 == nil {
		t.Fatalf("expected errors")
	}
	if err1.Error() != err2.Error() {
		t.Fatalf("expected deterministic error message across identical invalid invocations")
	}
}

func TestRun_UnknownSchedulingMode_ReturnsInvalidInvocation(t *testing.T) {
	args := append(baseArgs(t.TempDir()), "--scheduling-mode", "bogus")
	res, err := icl.Run(context.Background(), args)
	if res.ExitCode != icl.ExitInvalidInvocation {
		t.Fatalf("exit code = %d, want %d", res.ExitCode, icl.ExitInvalidInvocation)
	}
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestRun_UnexpectedPositionalArgs_ReturnsInvalidInvocation(t *testing.T) {
	args := append(baseArgs(t.TempDir()), "extra-positional-arg")
	res, err := icl.Run(context.Background(), args)
	if res.ExitCode != icl.ExitInvalidInvocation {
		t.Fatalf("exit code = %d, want %d", res.ExitCode, icl.ExitInvalidInvocation)
	}
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestRun_RollingFillMode_AlsoCompletesSuccessfully(t *testing.T) {
	args := append(baseArgs(t.TempDir()), "--scheduling-mode", "rolling_fill", "--max-parallel", "3")
	res, err := icl.Run(context.Background(), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != icl.ExitSuccess {
		t.Fatalf("exit code = %d, want %d", res.ExitCode, icl.ExitSuccess)
	}
	if res.State.Generate.Success != 9 {
		t.Fatalf("Generate.Success = %d, want 9", res.State.Generate.Success)
	}
}
