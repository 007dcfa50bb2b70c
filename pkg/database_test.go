package viewer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	sqlx "github.com/jmoiron/sqlx"
)

func testDatabase(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := OpenSQLiteDatabase(filepath.Join(t.TempDir(), "meta", "metadata.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()
	if err := MigrateMetadata(ctx, db); err != nil {
		t.Fatalf("MigrateMetadata failed: %v", err)
	}
	// a second migration is a no-op
	if err := MigrateMetadata(ctx, db); err != nil {
		t.Fatalf("MigrateMetadata failed twice: %v", err)
	}
	return db
}

func TestDBMetadataChannelMapValidity(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()

	early := testChannels()
	late := testChannels()
	late[1].Usable = false
	if err := InsertChannelMap(ctx, db, "20230301T000000Z", early); err != nil {
		t.Fatalf("InsertChannelMap failed: %v", err)
	}
	if err := InsertChannelMap(ctx, db, "20230315T000000Z", late); err != nil {
		t.Fatalf("InsertChannelMap failed: %v", err)
	}
	meta := NewDBMetadata(db)

	m, err := meta.ChannelMapAt(ctx, "20230311T235840Z")
	if err != nil {
		t.Fatalf("ChannelMapAt failed: %v", err)
	}
	if !m.Equal(NewChannelMap(early)) {
		t.Fatalf("expected the early map, got %v", m.Channels())
	}
	m, err = meta.ChannelMapAt(ctx, "20230315T000000Z")
	if err != nil {
		t.Fatalf("ChannelMapAt failed: %v", err)
	}
	if ch, _ := m.ByName("V01"); ch.Usable {
		t.Fatalf("expected the late map to apply from its first timestamp")
	}

	_, err = meta.ChannelMapAt(ctx, "20230101T000000Z")
	var lookupErr *MetadataLookupError
	if !errors.As(err, &lookupErr) {
		t.Fatalf("expected MetadataLookupError before the first entry, got %v", err)
	}
}

func TestDBMetadataProcessingConfig(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()

	if err := InsertProcessingConfig(ctx, db, "20230301T000000Z", ProcessingConfig{"ch1001/raw": "A", "ch1002/raw": "A"}); err != nil {
		t.Fatalf("InsertProcessingConfig failed: %v", err)
	}
	if err := InsertProcessingConfig(ctx, db, "20230320T000000Z", ProcessingConfig{"ch1001/raw": "B"}); err != nil {
		t.Fatalf("InsertProcessingConfig failed: %v", err)
	}
	meta := NewDBMetadata(db)

	config, err := meta.ProcessingConfigAt(ctx, "20230311T235840Z")
	if err != nil {
		t.Fatalf("ProcessingConfigAt failed: %v", err)
	}
	if len(config) != 2 || config["ch1001/raw"] != "A" {
		t.Fatalf("unexpected config %v", config)
	}
	config, err = meta.ProcessingConfigAt(ctx, "20230401T000000Z")
	if err != nil {
		t.Fatalf("ProcessingConfigAt failed: %v", err)
	}
	if len(config) != 1 || config["ch1001/raw"] != "B" {
		t.Fatalf("unexpected config %v", config)
	}
}

func TestDBMetadataProcessingChain(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	want := testChain("l200-p03-r000-dsp")
	if err := InsertProcessingChain(ctx, db, want); err != nil {
		t.Fatalf("InsertProcessingChain failed: %v", err)
	}
	meta := NewDBMetadata(db)

	got, err := meta.ProcessingChain(ctx, want.ID)
	if err != nil {
		t.Fatalf("ProcessingChain failed: %v", err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	_, err = meta.ProcessingChain(ctx, "missing")
	var lookupErr *MetadataLookupError
	if !errors.As(err, &lookupErr) {
		t.Fatalf("expected MetadataLookupError, got %v", err)
	}
}

func TestOpenDatabaseDrivers(t *testing.T) {
	config := DefaultConfiguration()
	config.MetadataPath = ""
	if _, err := OpenDatabase(config); err == nil {
		t.Fatalf("expected sqlite without a path to fail")
	}
	config.MetadataDriver = "postgres"
	if _, err := OpenDatabase(config); err == nil {
		t.Fatalf("expected an unknown driver to fail")
	}
	config.MetadataDriver = "sqlite"
	config.MetadataPath = filepath.Join(t.TempDir(), "m.db")
	db, err := OpenDatabase(config)
	if err != nil {
		t.Fatalf("OpenDatabase failed: %v", err)
	}
	db.Close()
}

func TestBrowserFactoryFromDatabase(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	if err := InsertProcessingChain(ctx, db, testChain("A")); err != nil {
		t.Fatalf("InsertProcessingChain failed: %v", err)
	}
	factory := NewBrowserFactory(NewDBMetadata(db), newFakeStore())

	handle, err := factory.Build(ctx, "ch1001", "A")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if handle.Channel() != "ch1001" || handle.ConfigID() != "A" {
		t.Fatalf("unexpected handle %s/%s", handle.Channel(), handle.ConfigID())
	}
	_, err = factory.Build(ctx, "ch1001", "missing")
	var buildErr *ErrBuildBrowser
	if !errors.As(err, &buildErr) {
		t.Fatalf("expected ErrBuildBrowser, got %v", err)
	}
	var lookupErr *MetadataLookupError
	if !errors.As(err, &lookupErr) {
		t.Fatalf("expected the lookup error to be wrapped, got %v", err)
	}
}
