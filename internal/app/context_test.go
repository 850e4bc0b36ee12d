package app

import (
	"context"
	"os"
	"testing"

	"staffline/internal/config"
	"staffline/internal/migrate"
)

func TestOpenUsesDefaultsWithoutConfigFile(t *testing.T) {
	dir := t.TempDir()
	ws, err := Open(context.Background(), dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer ws.Close()
	if ws.Config.Allocation.Capacity.Policy != config.PolicyDerived {
		t.Fatalf("expected derived policy, got %s", ws.Config.Allocation.Capacity.Policy)
	}
	if ws.Engine.Capacity.Name() != config.PolicyDerived {
		t.Fatalf("engine policy %s", ws.Engine.Capacity.Name())
	}
	v, err := migrate.Version(context.Background(), ws.DB)
	if err != nil || v == 0 {
		t.Fatalf("expected migrated db, version=%d err=%v", v, err)
	}
}

func TestOpenReadsWorkspaceConfig(t *testing.T) {
	dir := t.TempDir()
	yml := "allocation:\n  capacity:\n    policy: fixed\n    fixed_hours: 40\n"
	if err := os.WriteFile(config.Path(dir), []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	ws, err := Open(context.Background(), dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer ws.Close()
	if ws.Engine.Capacity.Name() != config.PolicyFixed {
		t.Fatalf("expected fixed policy, got %s", ws.Engine.Capacity.Name())
	}
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(config.Path(dir), []byte("allocation:\n  capacity:\n    policy: elastic\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(context.Background(), dir); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}
