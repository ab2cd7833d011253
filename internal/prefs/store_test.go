package prefs

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestOpenMissingFile(t *testing.T) {
	store, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.GetBool(KeyConsentManagement, false) {
		t.Fatalf("expected default for missing key")
	}
	if got := store.GetString(KeyAccessToken, "none"); got != "none" {
		t.Fatalf("expected default string, got %q", got)
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.SetBool(KeyConsentManagement, true); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	if err := store.SetString(KeyAccessToken, "tok"); err != nil {
		t.Fatalf("set string: %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, fileName))
	if err != nil {
		t.Fatalf("stat prefs: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	reloaded, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !reloaded.GetBool(KeyConsentManagement, false) {
		t.Fatalf("expected bool to survive reload")
	}
	if got := reloaded.GetString(KeyAccessToken, ""); got != "tok" {
		t.Fatalf("expected token to survive reload, got %q", got)
	}
	if got := reloaded.Keys(); !reflect.DeepEqual(got, []string{KeyAccessToken, KeyConsentManagement}) {
		t.Fatalf("unexpected keys: %v", got)
	}
}

func TestSetStringEmptyRemoves(t *testing.T) {
	store := NewMemory()
	_ = store.SetString(KeyAccessToken, "tok")
	_ = store.SetString(KeyAccessToken, "")
	if len(store.Keys()) != 0 {
		t.Fatalf("expected key to be removed, got %v", store.Keys())
	}
}

func TestOpenCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, fileName), []byte("{"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(dir, nil); err == nil {
		t.Fatalf("expected error for corrupt prefs")
	}
}

func TestDeviceIDIsStable(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	first := store.DeviceID()
	if first == "" || first != store.DeviceID() {
		t.Fatalf("expected stable device id, got %q", first)
	}
	reloaded, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reloaded.DeviceID() != first {
		t.Fatalf("expected device id to persist")
	}
}

func TestWithContextAndFromContext(t *testing.T) {
	store := NewMemory()
	ctx := WithContext(context.Background(), store)
	if FromContext(ctx) != store {
		t.Fatalf("expected store from context")
	}
	var nilCtx context.Context
	if WithContext(nilCtx, store) != nil {
		t.Fatalf("expected nil context")
	}
	if FromContext(context.Background()) != nil {
		t.Fatalf("expected no store for empty context")
	}
}
