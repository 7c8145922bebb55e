package app

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"ticketredemption/internal/codec"
	"ticketredemption/internal/ledger"
	"ticketredemption/internal/pool"
	"ticketredemption/internal/rarity"
	"ticketredemption/internal/signer"
	"ticketredemption/internal/store"
	"ticketredemption/internal/types"
)

var testContract = common.HexToAddress("0x00000000000000000000000000000000c0ffee01")

type testChain struct {
	app      *RedemptionApp
	store    *store.Store
	admin    *signer.Key
	verifier *signer.Key
	oracle   *signer.Oracle

	height     int64
	adminNonce uint64
}

func mustKey(t *testing.T) *signer.Key {
	t.Helper()
	k, err := signer.GenerateKey()
	require.NoError(t, err)
	return k
}

func newTestApp(t *testing.T) *testChain {
	t.Helper()
	c := &testChain{
		store:    store.NewMem(),
		admin:    mustKey(t),
		verifier: mustKey(t),
		oracle:   signer.NewOracle(mustKey(t)),
	}
	genesis := ledger.DefaultParams()
	genesis.Admin = c.admin.Address()
	genesis.Contract = testContract
	genesis.TicketVerifier = c.verifier.Address()
	genesis.RandomnessSigner = c.oracle.Address()

	a, err := New(Options{Store: c.store, Genesis: &genesis, Source: c.oracle})
	require.NoError(t, err)
	_, err = a.InitChain(context.Background(), &abci.InitChainRequest{ChainId: "test"})
	require.NoError(t, err)
	c.app = a
	// Genesis params become queryable once the first block commits.
	c.block(t)
	return c
}

func signedTx(t *testing.T, key *signer.Key, typ string, value any, nonce uint64) []byte {
	t.Helper()
	env, err := codec.NewEnvelope(typ, value, nonce, key.Address())
	require.NoError(t, err)
	env.Sig, err = key.SignMessage(env.SignBytes())
	require.NoError(t, err)
	b, err := env.Encode()
	require.NoError(t, err)
	return b
}

func (c *testChain) adminTx(t *testing.T, typ string, value any) []byte {
	t.Helper()
	c.adminNonce++
	return signedTx(t, c.admin, typ, value, c.adminNonce)
}

func (c *testChain) redeemTx(t *testing.T, sender *signer.Key, tier types.TicketType, qty, nonce uint64) []byte {
	t.Helper()
	auth, err := c.verifier.SignHash(signer.RedemptionPayload{
		Sender: sender.Address(), Contract: testContract, Quantity: qty, TicketType: tier, Nonce: nonce,
	}.Hash())
	require.NoError(t, err)
	return signedTx(t, sender, codec.TypeRedeem, codec.RedeemTx{
		Sender:     sender.Address().Hex(),
		TicketType: tier,
		Quantity:   qty,
		AuthSig:    auth,
	}, nonce)
}

// block executes txs as one block and commits it.
func (c *testChain) block(t *testing.T, txs ...[]byte) []*abci.ExecTxResult {
	t.Helper()
	c.height++
	res, err := c.app.FinalizeBlock(context.Background(), &abci.FinalizeBlockRequest{Height: c.height, Txs: txs})
	require.NoError(t, err)
	_, err = c.app.Commit(context.Background(), &abci.CommitRequest{})
	require.NoError(t, err)
	return res.TxResults
}

func (c *testChain) deliver(t *testing.T, tx []byte) *abci.ExecTxResult {
	t.Helper()
	return c.block(t, tx)[0]
}

func (c *testChain) query(t *testing.T, path string, out any) {
	t.Helper()
	res, err := c.app.Query(context.Background(), &abci.QueryRequest{Path: path})
	require.NoError(t, err)
	require.Zero(t, res.Code, res.Log)
	require.NoError(t, json.Unmarshal(res.Value, out))
}

func (c *testChain) fund(t *testing.T, to common.Address, tier types.TicketType, n uint64) {
	t.Helper()
	mustOk(t, c.deliver(t, c.adminTx(t, codec.TypeMintTickets, codec.MintTicketsTx{
		To: to.Hex(), TicketType: tier, Amount: n,
	})))
}

func mustOk(t *testing.T, res *abci.ExecTxResult) *abci.ExecTxResult {
	t.Helper()
	if res.Code != 0 {
		t.Fatalf("expected ok, got codespace=%s code=%d log=%q", res.Codespace, res.Code, res.Log)
	}
	return res
}

func requireCode(t *testing.T, res *abci.ExecTxResult, want uint32) {
	t.Helper()
	require.Equal(t, types.ModuleName, res.Codespace, res.Log)
	require.Equal(t, want, res.Code, res.Log)
}

func findEvent(events []abci.Event, typ string) *abci.Event {
	for i := range events {
		if events[i].Type == typ {
			return &events[i]
		}
	}
	return nil
}

func countEvents(events []abci.Event, typ string) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func attr(ev *abci.Event, key string) string {
	if ev == nil {
		return ""
	}
	for _, a := range ev.Attributes {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

func parseU64(t *testing.T, s string) uint64 {
	t.Helper()
	n, err := strconv.ParseUint(s, 10, 64)
	require.NoError(t, err, "parse uint64 %q", s)
	return n
}

func TestRedeem_EndToEnd(t *testing.T) {
	c := newTestApp(t)
	alice := mustKey(t)
	c.fund(t, alice.Address(), types.TicketGold, 2)

	res := mustOk(t, c.deliver(t, c.redeemTx(t, alice, types.TicketGold, 1, 0)))
	ev := findEvent(res.Events, types.EventTypeTicketRedeemed)
	require.NotNil(t, ev)
	require.Equal(t, alice.Address().Hex(), attr(ev, types.AttributeSender))
	require.Equal(t, "gold", attr(ev, types.AttributeTicketType))
	require.Equal(t, uint64(0), parseU64(t, attr(ev, types.AttributeNonceUsed)))
	require.Equal(t, uint64(1), parseU64(t, attr(ev, types.AttributeNonce)))
	require.Equal(t, uint64(5), parseU64(t, attr(ev, types.AttributeDraws)))
	require.Equal(t, 5, countEvents(res.Events, types.EventTypeCardDrawn))

	var nonce struct {
		Nonce uint64 `json:"nonce"`
	}
	c.query(t, "/nonce/"+alice.Address().Hex(), &nonce)
	require.Equal(t, uint64(1), nonce.Nonce)

	var tickets struct {
		Balances map[string]uint64 `json:"balances"`
	}
	c.query(t, "/tickets/"+alice.Address().Hex(), &tickets)
	require.Equal(t, uint64(1), tickets.Balances["gold"])

	var assets struct {
		Assets []ledger.Asset `json:"assets"`
	}
	c.query(t, "/assets/"+alice.Address().Hex(), &assets)
	require.Len(t, assets.Assets, 5)
	drawn := findEvent(res.Events, types.EventTypeCardDrawn)
	require.Equal(t, string(assets.Assets[0].ID), attr(drawn, types.AttributeAssetID))

	var burned struct {
		Burned map[string]uint64 `json:"burned"`
	}
	c.query(t, "/burned", &burned)
	require.Equal(t, uint64(1), burned.Burned["gold"])
}

func TestRedeem_ErrorCodes(t *testing.T) {
	c := newTestApp(t)
	alice, bob := mustKey(t), mustKey(t)
	c.fund(t, alice.Address(), types.TicketBronze, 1)

	// Insufficient balance.
	requireCode(t, c.deliver(t, c.redeemTx(t, bob, types.TicketBronze, 1, 0)), 5)
	// Unknown tier.
	requireCode(t, c.deliver(t, c.redeemTx(t, alice, types.TicketType(9), 1, 0)), 2)
	// Quantity zero.
	requireCode(t, c.deliver(t, c.redeemTx(t, alice, types.TicketBronze, 0, 0)), 1)

	// Envelope signed by someone other than the sender.
	tx := c.redeemTx(t, alice, types.TicketBronze, 1, 0)
	env, err := codec.DecodeTxEnvelope(tx)
	require.NoError(t, err)
	env.Sig, err = bob.SignMessage(env.SignBytes())
	require.NoError(t, err)
	forged, err := env.Encode()
	require.NoError(t, err)
	requireCode(t, c.deliver(t, forged), 3)

	// Paused.
	mustOk(t, c.deliver(t, c.adminTx(t, codec.TypePause, struct{}{})))
	requireCode(t, c.deliver(t, tx), 9)
	mustOk(t, c.deliver(t, c.adminTx(t, codec.TypeUnpause, struct{}{})))
	mustOk(t, c.deliver(t, tx))
}

func TestQuery_Errors(t *testing.T) {
	c := newTestApp(t)
	for _, path := range []string{"/nope", "/nonce/alice", "/assets/"} {
		res, err := c.app.Query(context.Background(), &abci.QueryRequest{Path: path})
		require.NoError(t, err)
		require.Equal(t, uint32(1), res.Code, path)
		require.Equal(t, types.ModuleName, res.Codespace, path)
	}

	var params ledger.Params
	c.query(t, "/params", &params)
	require.Equal(t, c.admin.Address(), params.Admin)
	require.True(t, params.RarityTable.Configured(types.TicketSilver))
}

func TestCheckTx(t *testing.T) {
	c := newTestApp(t)
	alice := mustKey(t)
	check := func(tx []byte) *abci.CheckTxResponse {
		res, err := c.app.CheckTx(context.Background(), &abci.CheckTxRequest{Tx: tx})
		require.NoError(t, err)
		return res
	}

	require.Zero(t, check(c.redeemTx(t, alice, types.TicketGold, 1, 0)).Code)
	require.Zero(t, check(c.adminTx(t, codec.TypePause, struct{}{})).Code)

	require.Equal(t, uint32(1), check([]byte("{not json")).Code)
	require.Equal(t, uint32(1), check(signedTx(t, alice, "bank/send", struct{}{}, 1)).Code)

	unsigned, err := codec.NewEnvelope(codec.TypePause, struct{}{}, 1, alice.Address())
	require.NoError(t, err)
	b, err := unsigned.Encode()
	require.NoError(t, err)
	require.Equal(t, uint32(3), check(b).Code)
}

func TestInfo_ReportsCommittedHeight(t *testing.T) {
	c := newTestApp(t)
	alice := mustKey(t)
	c.fund(t, alice.Address(), types.TicketSilver, 1)
	mustOk(t, c.deliver(t, c.redeemTx(t, alice, types.TicketSilver, 1, 0)))

	info, err := c.app.Info(context.Background(), &abci.InfoRequest{})
	require.NoError(t, err)
	require.Equal(t, c.height, info.LastBlockHeight)
	require.NotEmpty(t, info.LastBlockAppHash)

	// A restarted app over the same store resumes where it left off.
	again, err := New(Options{Store: c.store})
	require.NoError(t, err)
	info2, err := again.Info(context.Background(), &abci.InfoRequest{})
	require.NoError(t, err)
	require.Equal(t, info.LastBlockHeight, info2.LastBlockHeight)
	require.Equal(t, info.LastBlockAppHash, info2.LastBlockAppHash)

	hash, err := c.store.AppHash()
	require.NoError(t, err)
	require.Equal(t, info.LastBlockAppHash, hash)
}

func TestInitChain_AppStateOverridesGenesis(t *testing.T) {
	admin := mustKey(t)
	a, err := New(Options{Store: store.NewMem()})
	require.NoError(t, err)

	appState, err := json.Marshal(map[string]any{"admin": admin.Address(), "maxQuantity": 3})
	require.NoError(t, err)
	_, err = a.InitChain(context.Background(), &abci.InitChainRequest{AppStateBytes: appState})
	require.NoError(t, err)

	_, err = a.FinalizeBlock(context.Background(), &abci.FinalizeBlockRequest{Height: 1})
	require.NoError(t, err)
	_, err = a.Commit(context.Background(), &abci.CommitRequest{})
	require.NoError(t, err)

	res, err := a.Query(context.Background(), &abci.QueryRequest{Path: "/params"})
	require.NoError(t, err)
	var p ledger.Params
	require.NoError(t, json.Unmarshal(res.Value, &p))
	require.Equal(t, admin.Address(), p.Admin)
	require.Equal(t, uint64(3), p.MaxQuantity)
	require.Equal(t, ledger.DefaultBurnSink, p.BurnSink)
	require.True(t, p.RarityTable.Configured(types.TicketGold))

	_, err = a.InitChain(context.Background(), &abci.InitChainRequest{AppStateBytes: []byte(`{"maxQuantity":0}`)})
	require.ErrorIs(t, err, types.ErrInvalidRequest)
}

func initParams(t *testing.T, appState any) ledger.Params {
	t.Helper()
	a, err := New(Options{Store: store.NewMem()})
	require.NoError(t, err)
	bz, err := json.Marshal(appState)
	require.NoError(t, err)
	_, err = a.InitChain(context.Background(), &abci.InitChainRequest{AppStateBytes: bz})
	require.NoError(t, err)
	_, err = a.FinalizeBlock(context.Background(), &abci.FinalizeBlockRequest{Height: 1})
	require.NoError(t, err)
	_, err = a.Commit(context.Background(), &abci.CommitRequest{})
	require.NoError(t, err)

	res, err := a.Query(context.Background(), &abci.QueryRequest{Path: "/params"})
	require.NoError(t, err)
	require.Zero(t, res.Code, res.Log)
	var p ledger.Params
	require.NoError(t, json.Unmarshal(res.Value, &p))
	return p
}

func TestInitChain_AppStateReplacesWholeFields(t *testing.T) {
	p := initParams(t, map[string]any{
		"poolWeights": pool.Config{Default: pool.Weights{types.PoolHero: 1}},
	})
	require.Equal(t, pool.Weights{types.PoolHero: 1}, p.PoolWeights.Default)
	require.Empty(t, p.PoolWeights.ByRarity)
	require.True(t, p.RarityTable.Configured(types.TicketGold))

	bronze := rarity.NewTable()
	require.NoError(t, bronze.SetTier(types.TicketBronze, rarity.DefaultTiers()[types.TicketBronze]))
	p = initParams(t, map[string]any{"rarityTable": bronze})
	require.True(t, p.RarityTable.Configured(types.TicketBronze))
	require.False(t, p.RarityTable.Configured(types.TicketGold))
	require.False(t, p.RarityTable.Configured(types.TicketSilver))
	require.Equal(t, pool.Uniform(), p.PoolWeights.Default)
}
