package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"blockjack-backend/internal/confidential"
)

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate an oracle key pair as environment lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			kp := confidential.GenerateKeyPair()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ORACLE_SECRET_KEY=%s\n", kp.SecretHex())
			fmt.Fprintf(out, "BRIDGE_PUBLIC_KEY=%s\n", kp.PublicHex())
			return nil
		},
	}
}
