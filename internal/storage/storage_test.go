package storage

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"

	"github.com/hailam/xqeval/internal/eval"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewMemoryStorage()
	if err != nil {
		t.Fatalf("NewMemoryStorage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStorage(t *testing.T) {
	s := newTestStorage(t)

	t.Run("DefaultSettings", func(t *testing.T) {
		settings, err := s.LoadSettings()
		if err != nil {
			t.Fatal(err)
		}
		if settings.TuningSet != DefaultTuningSet {
			t.Errorf("Expected tuning set %q, got %q", DefaultTuningSet, settings.TuningSet)
		}
		if settings.EvalFile != "" {
			t.Errorf("Expected empty eval file, got %q", settings.EvalFile)
		}
	})

	t.Run("SettingsRoundTrip", func(t *testing.T) {
		want := DefaultSettings()
		want.EvalFile = "custom.nnue"
		want.TuningSet = "aggressive"
		if err := s.SaveSettings(want); err != nil {
			t.Fatal(err)
		}
		got, err := s.LoadSettings()
		if err != nil {
			t.Fatal(err)
		}
		if got.EvalFile != want.EvalFile || got.TuningSet != want.TuningSet || got.CacheSize != want.CacheSize {
			t.Errorf("Loaded %+v, want %+v", got, want)
		}
	})

	t.Run("Tuning", func(t *testing.T) {
		if _, err := s.LoadTuning("aggressive"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}

		c := eval.DefaultCoefficients()
		c.ScaleBase = 700
		if err := s.SaveTuning("aggressive", &c); err != nil {
			t.Fatal(err)
		}
		if err := s.SaveTuning("default", &eval.Coefficients{}); err == nil {
			t.Error("Expected invalid coefficients to be rejected")
		}
		d := eval.DefaultCoefficients()
		if err := s.SaveTuning("default", &d); err != nil {
			t.Fatal(err)
		}

		got, err := s.LoadTuning("aggressive")
		if err != nil {
			t.Fatal(err)
		}
		if got != c {
			t.Errorf("Loaded %+v, want %+v", got, c)
		}

		names, err := s.ListTunings()
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(names, []string{"aggressive", "default"}) {
			t.Errorf("ListTunings = %v", names)
		}
	})

	t.Run("NetworkRecords", func(t *testing.T) {
		if rec, err := s.LoadNetworkRecord(42); err != nil || rec != nil {
			t.Fatalf("Expected no record, got %v, %v", rec, err)
		}
		for i := 0; i < 2; i++ {
			if err := s.RecordNetwork("net.nnue", 42, 128, "test"); err != nil {
				t.Fatal(err)
			}
		}
		rec, err := s.LoadNetworkRecord(42)
		if err != nil {
			t.Fatal(err)
		}
		if rec.Name != "net.nnue" || rec.LoadCount != 2 || rec.HalfDims != 128 {
			t.Errorf("Unexpected record %+v", rec)
		}
	})
}

func TestDataPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv(EnvHome, home)

	dataDir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir failed: %v", err)
	}
	if dataDir != home {
		t.Errorf("DataDir = %q, want %q", dataDir, home)
	}

	extra := []string{filepath.Join(home, "a"), filepath.Join(home, "b")}
	t.Setenv(EnvNetworkPath, extra[0]+string(filepath.ListSeparator)+string(filepath.ListSeparator)+extra[1])
	dirs, err := NetworkDirs()
	if err != nil {
		t.Fatalf("NetworkDirs failed: %v", err)
	}
	want := append(extra, filepath.Join(home, networkDirName))
	if !slices.Equal(dirs, want) {
		t.Errorf("NetworkDirs = %v, want %v", dirs, want)
	}
	if _, err := os.Stat(want[2]); err != nil {
		t.Errorf("network directory missing: %v", err)
	}

	dbDir, err := DatabaseDir()
	if err != nil {
		t.Fatalf("DatabaseDir failed: %v", err)
	}
	if dbDir != filepath.Join(home, databaseDirName) {
		t.Errorf("DatabaseDir = %q", dbDir)
	}
}

func TestDataDirXDG(t *testing.T) {
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		t.Skipf("XDG_DATA_HOME is not used on %s", runtime.GOOS)
	}
	xdg := t.TempDir()
	t.Setenv(EnvHome, "")
	t.Setenv("XDG_DATA_HOME", xdg)

	dataDir, err := DataDir()
	if err != nil {
		t.Fatal(err)
	}
	if dataDir != filepath.Join(xdg, appName) {
		t.Errorf("DataDir = %q, want %q", dataDir, filepath.Join(xdg, appName))
	}
}
