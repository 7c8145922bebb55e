package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ticketredemption/internal/signer"
)

func keysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage secp256k1 keys for admins, verifiers and signers",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "new",
			Short: "Generate a key and print its address and private key",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				k, err := signer.GenerateKey()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "address: %s\nprivate_key: %s\n", k.Address().Hex(), k.Hex())
				return err
			},
		},
		&cobra.Command{
			Use:   "show <private-key>",
			Short: "Print the address of a private key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				k, err := signer.KeyFromHex(args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), k.Address().Hex())
				return err
			},
		},
	)
	return cmd
}
