package instance

import "testing"

func TestGetIDPrefersWorkerID(t *testing.T) {
	t.Setenv("STOREFRONT_WORKER_ID", "cron-2")
	t.Setenv("DYNO", "worker.1")
	if got := GetID(); got != "cron-2" {
		t.Fatalf("expected cron-2 got %q", got)
	}
}

func TestGetIDFallsBackToDyno(t *testing.T) {
	t.Setenv("STOREFRONT_WORKER_ID", "")
	t.Setenv("DYNO", "worker.1")
	if got := GetID(); got != "worker.1" {
		t.Fatalf("expected worker.1 got %q", got)
	}
}

func TestGetIDNeverEmpty(t *testing.T) {
	t.Setenv("STOREFRONT_WORKER_ID", "")
	t.Setenv("DYNO", "")
	if GetID() == "" {
		t.Fatal("expected a non-empty id")
	}
}
