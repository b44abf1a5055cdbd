package store

import (
	"testing"
	"time"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/contracttest"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/postgres/testutil"
	uowport "github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/uow"
)

func TestContract_PostgresSettlementStore(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunSettlementStore(t, func(t *testing.T) (uowport.UnitOfWork, func()) {
		t.Helper()
		return NewStore(pool, WithLockTimeout(2*time.Second)), nil
	})
}
