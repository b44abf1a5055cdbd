package mirror

import (
	"testing"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/contracttest"
	mirrorport "github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/mirror"
)

func TestContract_MirrorStore(t *testing.T) {
	contracttest.RunMirrorStore(t, func(t *testing.T) (mirrorport.Store, func()) {
		t.Helper()
		return NewStore(), nil
	})
}
