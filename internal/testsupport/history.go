package testsupport

import (
	"testing"

	"ytbatch/internal/config"
	"ytbatch/internal/history"
)

// MustOpenHistory opens the run history for cfg and closes it on cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
