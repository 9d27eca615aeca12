package sqlstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fourbar/fourbar/pkg/errors"
	"github.com/fourbar/fourbar/pkg/store"
	"github.com/fourbar/fourbar/pkg/store/storetest"
)

func TestSQLiteConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := Open(context.Background(), DriverSQLite, "file:"+filepath.Join(t.TempDir(), "fourbar.db"))
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		return s
	})
}

func TestPostgresConformance(t *testing.T) {
	dsn := os.Getenv("FOURBAR_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FOURBAR_TEST_POSTGRES_DSN not set")
	}
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := Open(context.Background(), DriverPostgres, dsn)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		for _, table := range []string{"layout", "widget"} {
			if _, err := s.DB().Exec("DELETE FROM " + table); err != nil {
				t.Fatalf("reset %s: %v", table, err)
			}
		}
		return s
	})
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "")
	if !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("Open(mysql) err = %v, want UNSUPPORTED", err)
	}
}

func TestRebind(t *testing.T) {
	tests := []struct {
		driver string
		in     string
		want   string
	}{
		{DriverSQLite, "a = ? AND b = ?", "a = ? AND b = ?"},
		{DriverPostgres, "a = ? AND b = ?", "a = $1 AND b = $2"},
		{DriverPostgres, "no placeholders", "no placeholders"},
	}
	for _, tt := range tests {
		t.Run(tt.driver+"/"+tt.in, func(t *testing.T) {
			s := &Store{driver: tt.driver}
			if got := s.rebind(tt.in); got != tt.want {
				t.Errorf("rebind(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
