package mirror

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/contracttest"
	mirrorport "github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/mirror"
)

func TestContract_SQLiteMirrorStore(t *testing.T) {
	contracttest.RunMirrorStore(t, func(t *testing.T) (mirrorport.Store, func()) {
		t.Helper()
		s, err := Open(":memory:")
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		return s, func() { _ = s.Close() }
	})
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	path := t.TempDir() + "/mirror.db"
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	contracttest.RunMirrorStore(t, func(t *testing.T) (mirrorport.Store, func()) {
		t.Helper()
		return s, nil
	})
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	again, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()
	var n int
	if err := again.db.Get(&n, `SELECT count(*) FROM trip_mirror`); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("mirrored trips after reopen=%d, want 1", n)
	}
}

func TestOpen_CreatesMissingDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data", "nested", "mirror.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file not created: %v", err)
	}
}
