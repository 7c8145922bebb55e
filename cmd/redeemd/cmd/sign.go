package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"ticketredemption/internal/codec"
	"ticketredemption/internal/signer"
	"ticketredemption/internal/types"
)

func signCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Produce verifier, randomness and tx signatures",
	}
	cmd.AddCommand(signRedeemCmd(), signRandomnessCmd(), signTxCmd())
	return cmd
}

func keyFlag(cmd *cobra.Command) {
	cmd.Flags().String("key", "", "hex secp256k1 private key")
	_ = cmd.MarkFlagRequired("key")
}

func loadKey(cmd *cobra.Command) (*signer.Key, error) {
	raw, err := cmd.Flags().GetString("key")
	if err != nil {
		return nil, err
	}
	return signer.KeyFromHex(raw)
}

func addressFlag(cmd *cobra.Command, name string) (common.Address, error) {
	raw, err := cmd.Flags().GetString(name)
	if err != nil {
		return common.Address{}, err
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("--%s: %q is not a hex address", name, raw)
	}
	return common.HexToAddress(raw), nil
}

func signRedeemCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redeem",
		Short: "Sign a redemption authorization as the ticket verifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := loadKey(cmd)
			if err != nil {
				return err
			}
			sender, err := addressFlag(cmd, "sender")
			if err != nil {
				return err
			}
			contract, err := addressFlag(cmd, "contract")
			if err != nil {
				return err
			}
			tierName, _ := cmd.Flags().GetString("ticket-type")
			tier, err := types.ParseTicketType(tierName)
			if err != nil {
				return err
			}
			quantity, _ := cmd.Flags().GetUint64("quantity")
			nonce, _ := cmd.Flags().GetUint64("nonce")

			sig, err := key.SignHash(signer.RedemptionPayload{
				Sender:     sender,
				Contract:   contract,
				Quantity:   quantity,
				TicketType: tier,
				Nonce:      nonce,
			}.Hash())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(sig))
			return err
		},
	}
	keyFlag(cmd)
	cmd.Flags().String("sender", "", "redeeming account")
	cmd.Flags().String("contract", "", "contract address")
	cmd.Flags().String("ticket-type", "", "gold|silver|bronze or 1|2|3")
	cmd.Flags().Uint64("quantity", 1, "tickets to burn")
	cmd.Flags().Uint64("nonce", 0, "sender's current redemption nonce")
	return cmd
}

func signRandomnessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "randomness",
		Short: "Sign draw randomness as the randomness signer, one line per position",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := loadKey(cmd)
			if err != nil {
				return err
			}
			sender, err := addressFlag(cmd, "sender")
			if err != nil {
				return err
			}
			contract, err := addressFlag(cmd, "contract")
			if err != nil {
				return err
			}
			first, _ := cmd.Flags().GetUint64("position")
			count, _ := cmd.Flags().GetUint64("count")
			session, _ := cmd.Flags().GetUint64("session")
			if first == 0 || count == 0 {
				return fmt.Errorf("--position and --count must be >= 1")
			}

			oracle := signer.NewOracle(key)
			for p := first; p < first+count; p++ {
				sig, err := oracle.RandomnessSignature(signer.RandomnessPayload{
					Sender:    sender,
					Contract:  contract,
					Position:  p,
					SessionID: session,
				})
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(sig)); err != nil {
					return err
				}
			}
			return nil
		},
	}
	keyFlag(cmd)
	cmd.Flags().String("sender", "", "redeeming account")
	cmd.Flags().String("contract", "", "contract address")
	cmd.Flags().Uint64("position", 1, "first draw position")
	cmd.Flags().Uint64("count", 1, "number of consecutive positions")
	cmd.Flags().Uint64("session", 0, "draw session id (the nonce the redemption consumes)")
	return cmd
}

func signTxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Wrap a JSON value in a signed tx envelope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := loadKey(cmd)
			if err != nil {
				return err
			}
			typ, _ := cmd.Flags().GetString("type")
			value, _ := cmd.Flags().GetString("value")
			nonce, _ := cmd.Flags().GetUint64("nonce")
			if !json.Valid([]byte(value)) {
				return fmt.Errorf("--value is not valid JSON")
			}

			env, err := codec.NewEnvelope(typ, json.RawMessage(value), nonce, key.Address())
			if err != nil {
				return err
			}
			if env.Sig, err = key.SignMessage(env.SignBytes()); err != nil {
				return err
			}
			b, err := env.Encode()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return err
		},
	}
	keyFlag(cmd)
	cmd.Flags().String("type", "", "tx type, e.g. redemption/redeem or admin/pause")
	cmd.Flags().String("value", "{}", "tx value as JSON")
	cmd.Flags().Uint64("nonce", 0, "envelope nonce: nonceAtSigning for redeem, increasing admin nonce otherwise")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}
