package codec

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"ticketredemption/internal/rarity"
	"ticketredemption/internal/types"
)

func TestDecodeTxEnvelope_OK(t *testing.T) {
	b, err := json.Marshal(map[string]any{
		"type":  TypeMintTickets,
		"value": map[string]any{"to": "0x00000000000000000000000000000000000000a1", "ticketType": 1, "amount": 3},
	})
	require.NoError(t, err)

	env, err := DecodeTxEnvelope(b)
	require.NoError(t, err)
	require.Equal(t, TypeMintTickets, env.Type)

	msg, err := DecodeValue[MintTicketsTx](env)
	require.NoError(t, err)
	require.Equal(t, types.TicketGold, msg.TicketType)
	require.Equal(t, uint64(3), msg.Amount)
}

func TestDecodeTxEnvelope_Errors(t *testing.T) {
	_, err := DecodeTxEnvelope([]byte("{not json"))
	require.ErrorIs(t, err, types.ErrInvalidRequest)

	_, err = DecodeTxEnvelope([]byte(`{"value":{"x":1}}`))
	require.ErrorIs(t, err, types.ErrInvalidRequest)

	env, err := DecodeTxEnvelope([]byte(`{"type":"redemption/redeem","value":{"quantity":"many"}}`))
	require.NoError(t, err)
	_, err = DecodeValue[RedeemTx](env)
	require.ErrorIs(t, err, types.ErrInvalidRequest)
}

func TestEnvelopeNonceAndSigner(t *testing.T) {
	signer := common.HexToAddress("0x00000000000000000000000000000000000000b2")
	env, err := NewEnvelope(TypePause, struct{}{}, 42, signer)
	require.NoError(t, err)

	n, err := env.NonceValue()
	require.NoError(t, err)
	require.Equal(t, uint64(42), n)

	got, err := env.SignerAddress()
	require.NoError(t, err)
	require.Equal(t, signer, got)

	env.Nonce = "-1"
	_, err = env.NonceValue()
	require.ErrorIs(t, err, types.ErrInvalidRequest)
	env.Nonce = ""
	_, err = env.NonceValue()
	require.ErrorIs(t, err, types.ErrInvalidRequest)

	env.Signer = "alice"
	_, err = env.SignerAddress()
	require.ErrorIs(t, err, types.ErrInvalidRequest)
}

func TestSignBytesBindEveryField(t *testing.T) {
	signer := common.HexToAddress("0x00000000000000000000000000000000000000b2")
	base, err := NewEnvelope(TypeMintTickets, MintTicketsTx{To: signer.Hex(), TicketType: types.TicketGold, Amount: 1}, 1, signer)
	require.NoError(t, err)
	want := base.SignBytes()

	lower := base
	lower.Signer = "0x00000000000000000000000000000000000000b2"
	require.Equal(t, want, lower.SignBytes())

	for name, mutate := range map[string]func(*TxEnvelope){
		"type":   func(e *TxEnvelope) { e.Type = TypePause },
		"nonce":  func(e *TxEnvelope) { e.Nonce = "2" },
		"signer": func(e *TxEnvelope) { e.Signer = common.HexToAddress("0xb3").Hex() },
		"value":  func(e *TxEnvelope) { e.Value = json.RawMessage(`{}`) },
	} {
		env := base
		mutate(&env)
		require.NotEqual(t, want, env.SignBytes(), name)
	}
}

func TestSetRarityTableTxJSON(t *testing.T) {
	raw := `{"ticketType":3,"positions":{"1":[{"rarity":"common","upTo":50},{"rarity":"epic","upTo":100}]}}`
	env := TxEnvelope{Type: TypeSetRarityTable, Value: json.RawMessage(raw)}
	msg, err := DecodeValue[SetRarityTableTx](env)
	require.NoError(t, err)
	require.Equal(t, types.TicketBronze, msg.TicketType)
	require.Equal(t, rarity.Thresholds{
		{Rarity: types.RarityCommon, UpTo: 50},
		{Rarity: types.RarityEpic, UpTo: 100},
	}, msg.Positions[1])
}

func TestParseAddress(t *testing.T) {
	_, err := ParseAddress("to", "0x0000000000000000000000000000000000000000")
	require.ErrorIs(t, err, types.ErrInvalidRequest)
	_, err = ParseAddress("to", "nope")
	require.ErrorIs(t, err, types.ErrInvalidRequest)
	a, err := ParseAddress("to", "0x00000000000000000000000000000000000000b2")
	require.NoError(t, err)
	require.Equal(t, byte(0xb2), a[19])
}
