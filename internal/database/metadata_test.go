package database

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
)

func TestMetadata(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.GetMetadata(ctx, "nonexistent"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetMetadata(nonexistent) error = %v, want sql.ErrNoRows", err)
	}

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "simple", key: "schema", value: "1"},
		{name: "overwrite", key: "schema", value: "2"},
		{name: "empty value", key: "empty", value: ""},
		{name: "special characters", key: "last_run:delete-thumbnails", value: "it's \"quoted\"; DROP TABLE metadata;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := db.SetMetadata(ctx, tt.key, tt.value); err != nil {
				t.Fatalf("SetMetadata() error = %v", err)
			}
			got, err := db.GetMetadata(ctx, tt.key)
			if err != nil {
				t.Fatalf("GetMetadata() error = %v", err)
			}
			if got != tt.value {
				t.Errorf("GetMetadata() = %q, want %q", got, tt.value)
			}
		})
	}
}

func TestMetadataConcurrentWrites(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := db.SetMetadata(ctx, "counter", string(rune('a'+i))); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("SetMetadata() error = %v", err)
	}
	if _, err := db.GetMetadata(ctx, "counter"); err != nil {
		t.Errorf("GetMetadata() error = %v", err)
	}
}
