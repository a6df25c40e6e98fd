package ui

import (
	"strings"
	"testing"
)

func TestRenderConflictedDocumentsEmpty(t *testing.T) {
	out := RenderConflictedDocuments(nil)
	if !strings.Contains(out, "no conflicted documents") {
		t.Fatalf("RenderConflictedDocuments(nil) = %q, want the empty-state message", out)
	}
}

func TestRenderConflictedDocumentsListsEach(t *testing.T) {
	out := RenderConflictedDocuments([]string{"doc1", "doc2"})
	if !strings.Contains(out, "doc1") || !strings.Contains(out, "doc2") {
		t.Fatalf("RenderConflictedDocuments output missing a document id: %q", out)
	}
}

func TestShouldUseColorRespectsNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if ShouldUseColor() {
		t.Fatal("ShouldUseColor() = true with NO_COLOR set, want false")
	}
}

func TestShouldUseColorRespectsForce(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	t.Setenv("CLICOLOR_FORCE", "1")
	if !ShouldUseColor() {
		t.Fatal("ShouldUseColor() = false with CLICOLOR_FORCE set, want true")
	}
}
