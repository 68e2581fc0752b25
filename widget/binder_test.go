package widget

import (
	"path/filepath"
	"testing"

	configmanager "github.com/MikeDP/ConfigManager"
	"github.com/MikeDP/ConfigManager/store"
)

func newTestBinder(t *testing.T, path string) (*Binder, MapOwner) {
	t.Helper()
	cfg, err := configmanager.NewWithRepository(&store.FileRepository{Path: path})
	if err != nil {
		t.Fatalf("NewWithRepository: %v", err)
	}
	owner, registry := newTestForm()
	return NewBinder(cfg, owner, registry), owner
}

func TestBinderSaveWidgets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ui.conf")
	b, _ := newTestBinder(t, path)

	state, err := b.SaveWidgets([]string{"nameEdit", "autoSave"})
	if err != nil {
		t.Fatalf("SaveWidgets: %v", err)
	}
	if state["nameEdit"] != "Mike" || state["autoSave"] != true {
		t.Errorf("state = %v", state)
	}
	if b.Config.Get("ui") == nil {
		t.Error("SaveWidgets did not store the ui field")
	}
}

func TestBinderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ui.conf")
	b, owner := newTestBinder(t, path)

	// ui_list drives the automatic snapshot on Save.
	b.Config.Set("ui_list", []string{"nameEdit", "autoSave", "retrySpin"})
	owner["nameEdit"].(*lineEdit).SetText("Sarah")
	owner["retrySpin"].(*spinBox).value = 9
	if err := b.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A fresh config and a fresh form: restoring replays the saved state.
	fresh, freshOwner := newTestBinder(t, path)
	if got := freshOwner["nameEdit"].(*lineEdit).Text(); got != "Mike" {
		t.Fatalf("fresh form already has text %q before restore", got)
	}
	if err := fresh.RestoreWidgets(); err != nil {
		t.Fatalf("RestoreWidgets: %v", err)
	}

	if got := freshOwner["nameEdit"].(*lineEdit).Text(); got != "Sarah" {
		t.Errorf("nameEdit = %q, want Sarah", got)
	}
	if !freshOwner["autoSave"].(*checkBox).checked {
		t.Error("autoSave lost its state")
	}
	if got := freshOwner["retrySpin"].(*spinBox).value; got != 9 {
		t.Errorf("retrySpin = %d, want 9", got)
	}
}

func TestBinderRestoreNothingStored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ui.conf")
	b, _ := newTestBinder(t, path)

	if err := b.RestoreWidgets(); err != nil {
		t.Errorf("RestoreWidgets with nothing stored: %v", err)
	}
}

func TestBinderSaveWithoutList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ui.conf")
	b, _ := newTestBinder(t, path)

	b.Config.Set("user", "Mike")
	if err := b.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if b.Config.Get("ui") != nil {
		t.Error("Save without ui_list still captured widget state")
	}
}
