package seed_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memstore "github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/memory/store"
	memuserrepo "github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/memory/userrepo"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/app/seed"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/platform/logger"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/uow"
)

func TestApply_DevFixture(t *testing.T) {
	t.Parallel()

	f, err := seed.LoadFile("testdata/dev.json")
	require.NoError(t, err)

	store := memstore.New()
	users := memuserrepo.NewRepo()
	at := time.Unix(1700000000, 0).UTC()

	sum, err := seed.Apply(context.Background(), store, users, f, at, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, seed.Summary{Accounts: 6, Users: 3, Trips: 1}, sum)

	require.NoError(t, store.WithinTx(context.Background(), func(ctx context.Context, r uow.Repos) error {
		trip, err := r.Trips.GetByID(ctx, "trip-1")
		require.NoError(t, err)
		assert.Equal(t, domain.TripStatusActive, trip.Status)
		assert.Equal(t, []domain.UserID{"rider-1", "rider-2", "rider-3"}, trip.PassengerIDs)
		assert.Equal(t, int64(1), trip.Version)

		escrow, err := r.Ledger.Get(ctx, domain.AccountEscrow)
		require.NoError(t, err)
		assert.Equal(t, int64(30), escrow.Balance)
		return nil
	}))

	u, err := users.GetByID(context.Background(), "rider-2")
	require.NoError(t, err)
	assert.Equal(t, "rider2@example.com", u.Email)
}

func TestApply_SecondRunSkipsExisting(t *testing.T) {
	t.Parallel()

	f, err := seed.LoadFile("testdata/dev.json")
	require.NoError(t, err)
	store := memstore.New()
	users := memuserrepo.NewRepo()
	at := time.Unix(1700000000, 0).UTC()

	_, err = seed.Apply(context.Background(), store, users, f, at, logger.Discard())
	require.NoError(t, err)
	sum, err := seed.Apply(context.Background(), store, users, f, at.Add(time.Hour), logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, seed.Summary{Skipped: 10}, sum)
}

func TestApply_InvalidTripRollsBackAccounts(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	f := seed.Fixture{
		Accounts: []seed.Account{{ID: "escrow", Balance: 10}},
		Trips:    []seed.Trip{{ID: "t1", PricePerSeat: 10}},
	}
	_, err := seed.Apply(context.Background(), store, memuserrepo.NewRepo(), f, time.Unix(1, 0), logger.Discard())
	require.ErrorIs(t, err, domain.ErrMalformedRecord)

	require.NoError(t, store.WithinTx(context.Background(), func(ctx context.Context, r uow.Repos) error {
		_, err := r.Ledger.Get(ctx, domain.AccountEscrow)
		assert.Error(t, err)
		return nil
	}))
}

func TestLoadFile_Errors(t *testing.T) {
	t.Parallel()

	_, err := seed.LoadFile("testdata/missing.json")
	assert.Error(t, err)
}
