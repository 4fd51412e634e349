package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Work with manager approval tokens",
}

var tokenGenerateCmd = &cobra.Command{
	Use:   "generate <ticket-id>",
	Short: "Print the approval links for a ticket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		links := a.tokens.Links(a.cfg.Approval.BaseURL, args[0])
		fmt.Printf("Approve: %s\n", links.Approve)
		fmt.Printf("Reject:  %s\n", links.Reject)
		return nil
	},
}

var tokenApproveCmd = &cobra.Command{
	Use:   "approve <ticket-id> <token>",
	Short: "Apply a manager approval",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return applyDecision(cmd, args[0], args[1], true)
	},
}

var tokenRejectCmd = &cobra.Command{
	Use:   "reject <ticket-id> <token>",
	Short: "Apply a manager rejection",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return applyDecision(cmd, args[0], args[1], false)
	},
}

func applyDecision(cmd *cobra.Command, ticketID, token string, approve bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ok, err := a.tokens.ApplyDecision(cmd.Context(), a.store, ticketID, token, approve)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("ticket %s not found", ticketID)
	}
	if approve {
		fmt.Printf("Ticket %s approved and closed.\n", ticketID)
	} else {
		fmt.Printf("Ticket %s rejected and reopened.\n", ticketID)
	}
	return nil
}

func init() {
	tokenCmd.AddCommand(tokenGenerateCmd, tokenApproveCmd, tokenRejectCmd)
	rootCmd.AddCommand(tokenCmd)
}
