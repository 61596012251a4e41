package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/actionsum/activitylog/internal/models"
)

func TestFocusTracker(t *testing.T) {
	editorA := models.NewFocus("code", "main.go")
	editorB := models.NewFocus("code", "store.go")
	browser := models.NewFocus("firefox", "docs")

	tests := []struct {
		name      string
		samples   []models.Focus
		wantOpens int
	}{
		{"first sample opens", []models.Focus{editorA}, 1},
		{"no focus is a state", []models.Focus{models.NoFocus, models.NoFocus}, 1},
		{"same pair repeated", []models.Focus{editorA, editorA, editorA}, 1},
		{"distinct titles same program", []models.Focus{editorA, editorB}, 2},
		{"switch and back", []models.Focus{editorA, browser, editorA}, 3},
		{"focus lost", []models.Focus{browser, models.NoFocus, browser}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStore{}
			tr := NewFocusTracker(store)
			for i, f := range tt.samples {
				if _, err := tr.Observe(context.Background(), f, base.Add(time.Duration(i)*5*time.Second)); err != nil {
					t.Fatalf("Observe() error: %v", err)
				}
				if open := store.openFocusCount(); open != 1 {
					t.Fatalf("after sample %d: %d open intervals", i, open)
				}
			}
			if len(store.focus) != tt.wantOpens {
				t.Errorf("got %d intervals, want %d", len(store.focus), tt.wantOpens)
			}
			for i := 0; i < len(store.focus)-1; i++ {
				if !store.focus[i].end.Equal(store.focus[i+1].start) {
					t.Errorf("intervals %d and %d do not chain", i, i+1)
				}
			}
			last := store.focus[len(store.focus)-1]
			if cur, _ := tr.Current(); cur != last.focus {
				t.Errorf("Current() = %v, open interval has %v", cur, last.focus)
			}
		})
	}
}

func TestFocusRetriesAfterPersistenceError(t *testing.T) {
	store := &memStore{}
	tr := NewFocusTracker(store)
	ctx := context.Background()

	editor := models.NewFocus("code", "main.go")
	browser := models.NewFocus("firefox", "docs")

	if _, err := tr.Observe(ctx, editor, base); err != nil {
		t.Fatal(err)
	}
	store.setFail(true)
	if _, err := tr.Observe(ctx, browser, base.Add(5*time.Second)); err == nil {
		t.Fatal("expected error")
	}
	if cur, _ := tr.Current(); cur != editor {
		t.Fatalf("state advanced on failure")
	}
	store.setFail(false)
	changed, err := tr.Observe(ctx, browser, base.Add(10*time.Second))
	if err != nil || !changed {
		t.Fatalf("retry = %v, %v", changed, err)
	}
	if !store.focus[0].end.Equal(base.Add(10 * time.Second)) {
		t.Errorf("first interval closed at %v", store.focus[0].end)
	}
}
