package syncqueue

import (
	"testing"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/contracttest"
	syncqueueport "github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/syncqueue"
)

func TestContract_SyncQueue(t *testing.T) {
	contracttest.RunSyncQueue(t, func(t *testing.T) (syncqueueport.Queue, func()) {
		t.Helper()
		return NewQueue(), nil
	})
}
