package store

import (
	"testing"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/contracttest"
	uowport "github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/uow"
)

func TestContract_SettlementStore(t *testing.T) {
	contracttest.RunSettlementStore(t, func(t *testing.T) (uowport.UnitOfWork, func()) {
		t.Helper()
		return New(), nil
	})
}
