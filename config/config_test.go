package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/scrnlab/sclc/logging"
)

type dumbLogger struct{}

func (dumbLogger) SetLevel(logging.Level)                                {}
func (dumbLogger) Log(level logging.Level, msg string, a ...interface{}) {}

func TestDefaultValidates(t *testing.T) {
	o := Default(1920, 1080, dumbLogger{})
	if err := o.Validate(); err != nil {
		t.Fatalf("Default() should validate, got %v", err)
	}
}

func TestValidateRejectsBadFields(t *testing.T) {
	base := Default(640, 480, dumbLogger{})

	cases := []struct {
		name string
		mod  func(*Options)
	}{
		{"zero width", func(o *Options) { o.Width = 0 }},
		{"negative height", func(o *Options) { o.Height = -1 }},
		{"loss too high", func(o *Options) { o.LossBits = 6 }},
		{"loss negative", func(o *Options) { o.LossBits = -1 }},
		{"bad f0", func(o *Options) { o.F0 = 48 }},
		{"zero msr", func(o *Options) { o.MSRX = 0 }},
		{"nil logger", func(o *Options) { o.Logger = nil }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			o := base
			c.mod(&o)
			if err := o.Validate(); err == nil {
				t.Fatalf("Validate() should reject %s", c.name)
			}
		})
	}
}

func TestBlockParamsProjection(t *testing.T) {
	o := Default(64, 64, dumbLogger{})
	o.MSRX, o.MSRY, o.MSRLowX, o.MSRLowY = 100, 200, 4, 6
	p := o.BlockParams()
	if p.MSRX != 100 || p.MSRY != 200 || p.MSRLowX != 4 || p.MSRLowY != 6 {
		t.Fatalf("BlockParams() = %+v, want matching fields", p)
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runtime.json")
	initial := reloadable{MSRX: 256, MSRY: 256, MSRLowX: 8, MSRLowY: 8, Loss: 0}
	writeReloadable(t, path, initial)

	base := Default(320, 240, dumbLogger{})
	changes := make(chan Options, 1)
	w, err := NewWatcher(path, base, func(o Options) { changes <- o })
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	writeReloadable(t, path, reloadable{MSRX: 64, MSRY: 64, MSRLowX: 4, MSRLowY: 4, Loss: 2})

	select {
	case got := <-changes:
		if got.MSRX != 64 || got.LossBits != 2 {
			t.Fatalf("reloaded Options = %+v, want MSRX=64 LossBits=2", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}

	if w.Current().MSRX != 64 {
		t.Fatalf("Current().MSRX = %d, want 64", w.Current().MSRX)
	}
}

func TestWatcherRejectsInvalidReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runtime.json")
	writeReloadable(t, path, reloadable{MSRX: 256, MSRY: 256, MSRLowX: 8, MSRLowY: 8, Loss: 0})

	base := Default(320, 240, dumbLogger{})
	w, err := NewWatcher(path, base, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	writeReloadable(t, path, reloadable{MSRX: 0, MSRY: 256, MSRLowX: 8, MSRLowY: 8, Loss: 0})
	time.Sleep(200 * time.Millisecond)

	if w.Current().MSRX != 256 {
		t.Fatalf("Current().MSRX = %d, want unchanged 256 after invalid reload", w.Current().MSRX)
	}
}

func writeReloadable(t *testing.T, path string, r reloadable) {
	t.Helper()
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}
