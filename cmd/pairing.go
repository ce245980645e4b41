package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openpawz/pawgo/internal/config"
	"github.com/openpawz/pawgo/internal/store"
)

// pairingCmd gives the owner a way to approve a device/channel pairing code
// without a running gateway — it opens the same SQLite database directly.
func pairingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pairing",
		Short: "Manage channel pairing requests",
	}
	cmd.AddCommand(pairingApproveCmd())
	cmd.AddCommand(pairingListCmd())
	return cmd
}

func openPairingStore() (*store.DB, store.PairingStore) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	db, err := store.Open(config.ExpandHome(cfg.Database.SQLitePath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	return db, db.Pairing
}

func pairingApproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <code>",
		Short: "Approve a pending pairing code",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			db, pairing := openPairingStore()
			defer db.Close()

			code := args[0]
			found := false
			for _, channel := range []string{"telegram", "discord"} {
				pending, ok, err := pairing.FindByCode(channel, code)
				if err != nil || !ok {
					continue
				}
				if err := pairing.Promote(pending.Channel, pending.SenderID); err != nil {
					fmt.Fprintf(os.Stderr, "approve failed: %v\n", err)
					os.Exit(1)
				}
				fmt.Printf("Approved %s sender %s\n", pending.Channel, pending.SenderID)
				found = true
				break
			}
			if !found {
				fmt.Println("Unknown or expired pairing code.")
				os.Exit(1)
			}
		},
	}
}

func pairingListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <channel> <sender-id>",
		Short: "Check whether a sender is already paired on a channel",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			db, pairing := openPairingStore()
			defer db.Close()

			paired, err := pairing.IsPaired(args[0], args[1])
			if err != nil {
				fmt.Fprintf(os.Stderr, "lookup failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("%s/%s paired: %t\n", args[0], args[1], paired)
		},
	}
}
