package types

import errorsmod "cosmossdk.io/errors"

// Redemption sentinel errors. Codes are part of the ABCI surface; do not renumber.
var (
	ErrInvalidRequest            = errorsmod.Register(ModuleName, 1, "invalid request")
	ErrUnknownTicketType         = errorsmod.Register(ModuleName, 2, "unknown ticket type")
	ErrUnauthorized              = errorsmod.Register(ModuleName, 3, "unauthorized")
	ErrStaleNonce                = errorsmod.Register(ModuleName, 4, "stale nonce")
	ErrInsufficientTicketBalance = errorsmod.Register(ModuleName, 5, "insufficient ticket balance")
	ErrEntropyOutOfRange         = errorsmod.Register(ModuleName, 6, "entropy out of range")
	ErrPoolMintFailed            = errorsmod.Register(ModuleName, 7, "pool mint failed")
	ErrConfigurationMissing      = errorsmod.Register(ModuleName, 8, "configuration missing")
	ErrPaused                    = errorsmod.Register(ModuleName, 9, "redemption paused")
	ErrInvalidRarityTable        = errorsmod.Register(ModuleName, 10, "invalid rarity table")
	ErrEntropyReused             = errorsmod.Register(ModuleName, 11, "entropy reused")
)
