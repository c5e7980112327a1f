package service

import (
	"context"
	"os"
	"testing"

	"github.com/clauselens/backend/config"
)

func TestLocalFileStoreSaveDelete(t *testing.T) {
	store, err := NewLocalFileStore(t.TempDir() + "/uploads")
	if err != nil {
		t.Fatalf("NewLocalFileStore() error = %v", err)
	}

	ctx := context.Background()
	location, err := store.Save(ctx, "abc-123.txt", []byte("contract text"), "text/plain")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(location)
	if err != nil {
		t.Fatalf("stored file unreadable: %v", err)
	}
	if string(data) != "contract text" {
		t.Errorf("stored content = %q", data)
	}

	if err := store.Delete(ctx, location); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(location); !os.IsNotExist(err) {
		t.Error("file should be gone after Delete")
	}
}

func TestNewFileStoreUnknownBackend(t *testing.T) {
	_, err := NewFileStore(&config.StorageConfig{Backend: "s3"}, t.TempDir())
	if err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestNewFileStoreDefaultsToLocal(t *testing.T) {
	store, err := NewFileStore(&config.StorageConfig{}, t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if _, ok := store.(*LocalFileStore); !ok {
		t.Errorf("store = %T, want *LocalFileStore", store)
	}
}
