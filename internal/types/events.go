package types

// Event types emitted by the application.
const (
	EventTypeTicketRedeemed = "TicketRedeemed"
	EventTypeCardDrawn      = "CardDrawn"

	EventTypeTicketsMinted       = "TicketsMinted"
	EventTypeVerifierUpdated     = "TicketVerifierUpdated"
	EventTypeRandomnessSignerSet = "RandomnessSignerUpdated"
	EventTypeRarityTableUpdated  = "RarityTableUpdated"
	EventTypePoolWeightsUpdated  = "PoolWeightsUpdated"
	EventTypeRedemptionPaused    = "RedemptionPaused"
	EventTypeRedemptionUnpaused  = "RedemptionUnpaused"
)

// Event attribute keys.
const (
	AttributeSender     = "sender"
	AttributeTicketType = "ticketType"
	AttributeQuantity   = "quantity"
	AttributeNonceUsed  = "nonceUsed"
	AttributeNonce      = "nonce"
	AttributeDraws      = "draws"
	AttributePosition   = "position"
	AttributeRarity     = "rarity"
	AttributePool       = "pool"
	AttributeAssetID    = "assetId"
	AttributeAddress    = "address"
	AttributeAmount     = "amount"
)
