package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/querydesk/querydesk/pkg/resolution"
	"github.com/querydesk/querydesk/pkg/ticket"
)

var resolveTicketID string

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Run the batch resolver over open tickets",
	Long: `Process open tickets unattended. Each ticket is classified into one of
the closure categories and the record, notifications and approval
requests are handled accordingly. Use --ticket to process a single
ticket instead of all open ones.`,
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveTicketID, "ticket", "", "process only this ticket ID")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	resolver, err := resolution.New(resolution.Config{
		Store:     a.store,
		Directory: a.store,
		Notifier:  a.notifier,
		Tokens:    a.tokens,
		Provider:  a.provider,
		Model:     a.cfg.AI.Model,
		BaseURL:   a.cfg.Approval.BaseURL,
		Logger:    a.log.Zerolog(),
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	var outcomes []resolution.Outcome
	if resolveTicketID != "" {
		t, err := findTicket(cmd, a, resolveTicketID)
		if err != nil {
			return err
		}
		outcome, err := resolver.ProcessTicket(ctx, t)
		if err != nil {
			return err
		}
		outcomes = []resolution.Outcome{outcome}
	} else {
		outcomes, err = resolver.ProcessOpenTickets(ctx)
		if err != nil {
			return err
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(outcomes)
}

func findTicket(cmd *cobra.Command, a *app, id string) (ticket.Ticket, error) {
	tickets, err := a.store.FetchTickets(cmd.Context(), ticket.Filters{"id": id})
	if err != nil {
		return ticket.Ticket{}, err
	}
	if len(tickets) == 0 {
		return ticket.Ticket{}, fmt.Errorf("ticket %s not found", id)
	}
	return tickets[0], nil
}
