package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"ticketredemption/internal/audit"
	"ticketredemption/internal/types"
)

var holder = common.HexToAddress("0x00000000000000000000000000000000000a11ce")

func openTempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(nonce uint64) audit.Record {
	return audit.Record{
		Sender:     holder,
		TicketType: types.TicketBronze,
		Quantity:   1,
		NonceUsed:  nonce,
		Height:     int64(10 + nonce),
		CreatedAt:  time.Date(2026, 3, 1, 12, 0, int(nonce), 0, time.UTC),
		Draws: []audit.Draw{
			{Position: 1, Rarity: types.RarityCommon, Pool: types.PoolHero, AssetID: "0xa1"},
			{Position: 2, Rarity: types.RarityRare, Pool: types.PoolSpell, AssetID: "0xa2"},
			{Position: 3, Rarity: types.RarityEpic, Pool: types.PoolTower, AssetID: "0xa3"},
		},
	}
}

func TestRecordAndListBySender(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, record(0)))
	require.NoError(t, s.Record(ctx, record(1)))

	got, err := s.ListBySender(ctx, holder, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, uint64(1), got[0].NonceUsed, "newest first")
	require.Equal(t, record(1), got[0])
	require.Equal(t, record(0), got[1])

	other, err := s.ListBySender(ctx, common.HexToAddress("0x01"), 10)
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestRecord_DuplicateNonceIsIgnored(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, record(0)))
	dup := record(0)
	dup.Quantity = 99
	require.NoError(t, s.Record(ctx, dup))

	got, err := s.ListBySender(ctx, holder, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, uint64(1), got[0].Quantity)
	require.Len(t, got[0].Draws, 3)
}

func TestRecord_Validation(t *testing.T) {
	s := openTempStore(t)
	require.Error(t, s.Record(context.Background(), audit.Record{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Record(ctx, record(0)), context.Canceled)

	_, err := s.ListBySender(context.Background(), holder, 0)
	require.Error(t, err)
}

func TestOpen_ReappliesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(context.Background(), record(0)))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.ListBySender(context.Background(), holder, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestUpSection(t *testing.T) {
	require.Equal(t, "\nA\n", upSection("-- +migrate Up\nA\n-- +migrate Down\nB"))
	require.Equal(t, "plain", upSection("plain"))
}
