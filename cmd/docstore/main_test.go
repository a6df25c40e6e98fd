package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/quillsync/docstore/internal/datastore"
	"github.com/quillsync/docstore/internal/docbody"
	"github.com/quillsync/docstore/internal/eventbus"
)

// setUpManager points the global manager at a fresh temp root, the
// same role PersistentPreRunE plays when running for real, without
// going through cobra's config-loading path.
func setUpManager(t *testing.T) {
	t.Helper()
	mgr, err := datastore.NewManager(t.TempDir(), eventbus.New())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })
	manager = mgr
}

func TestConflictsCommandReportsNoneOnEmptyStore(t *testing.T) {
	setUpManager(t)
	ctx := context.Background()
	if _, err := manager.Open(ctx, "notes"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := conflictsCmd.RunE(conflictsCmd, []string{"notes"}); err != nil {
		t.Fatalf("conflictsCmd.RunE: %v", err)
	}
}

func TestDiffCommandWritesMissingRevisions(t *testing.T) {
	setUpManager(t)
	ctx := context.Background()
	ds, err := manager.Open(ctx, "notes")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rev := datastore.NewRevision{DocID: "doc1", RevID: "1-a", Body: docbody.New([]byte(`{"v":1}`))}
	if err := ds.ForceInsert(ctx, rev, nil, nil); err != nil {
		t.Fatalf("ForceInsert: %v", err)
	}

	offeredPath := filepath.Join(t.TempDir(), "offered.json")
	if err := os.WriteFile(offeredPath, []byte(`{"doc1":["1-a","2-b"]}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	diffOfferedPath = offeredPath

	if err := diffCmd.RunE(diffCmd, []string{"notes"}); err != nil {
		t.Fatalf("diffCmd.RunE: %v", err)
	}
}

func TestStageAttachmentCommandStagesFile(t *testing.T) {
	setUpManager(t)
	ctx := context.Background()
	if _, err := manager.Open(ctx, "notes"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	filePath := filepath.Join(t.TempDir(), "photo.jpg")
	if err := os.WriteFile(filePath, []byte("binary data"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	stageAttachmentEncoding = "Plain"

	if err := stageAttachmentCmd.RunE(stageAttachmentCmd, []string{"notes", filePath}); err != nil {
		t.Fatalf("stageAttachmentCmd.RunE: %v", err)
	}
}

func TestMissingOfferedFileFails(t *testing.T) {
	setUpManager(t)
	ctx := context.Background()
	if _, err := manager.Open(ctx, "notes"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	diffOfferedPath = filepath.Join(t.TempDir(), "does-not-exist.json")
	if err := diffCmd.RunE(diffCmd, []string{"notes"}); err == nil {
		t.Fatal("want error for a missing --offered file")
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"diff", "conflicts", "stage-attachment"} {
		if !names[want] {
			t.Errorf("rootCmd missing subcommand %q", want)
		}
	}
}
