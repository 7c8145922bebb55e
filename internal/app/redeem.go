package app

import (
	"context"
	"strconv"

	abci "github.com/cometbft/cometbft/abci/types"

	"ticketredemption/internal/codec"
	"ticketredemption/internal/redemption"
	"ticketredemption/internal/types"
)

// deliverRedeem runs a sender-signed redeem tx. The envelope nonce is the
// nonce the ticket verifier signed at.
func (a *RedemptionApp) deliverRedeem(ctx context.Context, engine *redemption.Engine, env codec.TxEnvelope, height int64) (*abci.ExecTxResult, error) {
	msg, err := codec.DecodeValue[codec.RedeemTx](env)
	if err != nil {
		return nil, err
	}
	sender, err := codec.ParseAddress("sender", msg.Sender)
	if err != nil {
		return nil, err
	}
	nonce, err := requireSignedBy(env, sender)
	if err != nil {
		return nil, err
	}

	res, err := engine.Redeem(ctx, redemption.Request{
		Sender:         sender,
		TicketType:     msg.TicketType,
		Quantity:       msg.Quantity,
		NonceAtSigning: nonce,
		AuthSignature:  msg.AuthSig,
		Randomness:     msg.Randomness,
		Height:         height,
	})
	if err != nil {
		return nil, err
	}
	return redeemResult(res), nil
}

func redeemResult(res redemption.Result) *abci.ExecTxResult {
	out := okEvent(types.EventTypeTicketRedeemed, map[string]string{
		types.AttributeSender:     res.Sender.Hex(),
		types.AttributeTicketType: res.TicketType.String(),
		types.AttributeQuantity:   strconv.FormatUint(res.Quantity, 10),
		types.AttributeNonceUsed:  strconv.FormatUint(res.NonceUsed, 10),
		types.AttributeNonce:      strconv.FormatUint(res.Nonce, 10),
		types.AttributeDraws:      strconv.Itoa(len(res.Draws)),
	})
	for _, d := range res.Draws {
		out.Events = append(out.Events, event(types.EventTypeCardDrawn, map[string]string{
			types.AttributeSender:   res.Sender.Hex(),
			types.AttributePosition: strconv.Itoa(d.Position),
			types.AttributeRarity:   d.Rarity.String(),
			types.AttributePool:     d.Pool.String(),
			types.AttributeAssetID:  string(d.AssetID),
		}))
	}
	return out
}
