package testsupport

import (
	"context"
	"testing"

	"eideploy/internal/config"
	"eideploy/internal/history"
)

// MustOpenHistory opens the history database under the config's state dir and
// registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// BeginRun records a started run for tests using the provided store.
func BeginRun(t testing.TB, store *history.Store, cfg *config.Config) history.Run {
	t.Helper()

	run, err := store.Begin(context.Background(), history.Run{
		ProjectID:  cfg.Studio.ProjectID,
		DeployType: cfg.Build.DeploymentType,
		Engine:     cfg.Build.Engine,
		ModelType:  cfg.Build.ModelType,
		ImpulseID:  cfg.Build.ImpulseID,
	})
	if err != nil {
		t.Fatalf("store.Begin: %v", err)
	}
	return *run
}
