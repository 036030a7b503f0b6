package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestInitGraphOrder(t *testing.T) {
	steps := InitGraph()
	want := []string{
		"config:load",
		"logging:init-provider",
		"storage:init-session-store",
		"storage:init-object-store",
		"providers:init-stt",
		"providers:init-analyzer",
		"transport:init-client",
		"pipeline:init-runner",
		"services:init-bot",
	}
	if len(steps) != len(want) {
		t.Fatalf("unexpected step count: got %d want %d", len(steps), len(want))
	}
	for i, step := range steps {
		if step.ID != want[i] {
			t.Fatalf("step %d mismatch: got %s want %s", i, step.ID, want[i])
		}
	}
}

func TestInitGraphDependenciesResolve(t *testing.T) {
	seen := map[string]struct{}{}
	for _, step := range InitGraph() {
		for _, dep := range step.DependsOn {
			if _, ok := seen[dep]; !ok {
				t.Fatalf("step %s depends on %s which is not declared earlier", step.ID, dep)
			}
		}
		seen[step.ID] = struct{}{}
	}
}

func TestExecuteInitStepsRejectsMissingDependency(t *testing.T) {
	steps := []initStep{
		{
			ID:        "second",
			DependsOn: []string{"first"},
			Execute:   func(context.Context, *appState) error { return nil },
		},
	}
	if err := executeInitSteps(context.Background(), steps, &appState{}); err == nil {
		t.Fatal("expected missing dependency error")
	}
}

func TestExecuteInitStepsWrapsStepFailure(t *testing.T) {
	boom := errors.New("boom")
	steps := []initStep{
		{
			ID:      "first",
			Execute: func(context.Context, *appState) error { return boom },
		},
	}
	err := executeInitSteps(context.Background(), steps, &appState{})
	if err == nil || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped step failure, got %v", err)
	}
}

func TestSmokeConfigAndLoggingSteps(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := "log:\n  dir: " + filepath.Join(dir, "logs") + "\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", configPath)

	state := &appState{}
	if err := stepLoadConfig(context.Background(), state); err != nil {
		t.Fatalf("config step failed: %v", err)
	}
	if state.config == nil {
		t.Fatal("config is nil after init")
	}
	if err := stepInitLogging(context.Background(), state); err != nil {
		t.Fatalf("logging step failed: %v", err)
	}
	if state.logger == nil {
		t.Fatal("logger is nil after init")
	}
	state.logger.Close()
}
