package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/querydesk/querydesk/pkg/ticket"
)

// seedFile is the JSON shape accepted by the seed command.
type seedFile struct {
	Tickets  []ticket.Ticket  `json:"tickets"`
	Invoices []ticket.Invoice `json:"invoices"`
	Contacts []seedContact    `json:"contacts"`
}

type seedContact struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Team      string `json:"team"`
	IsManager bool   `json:"is_manager"`
}

var seedCmd = &cobra.Command{
	Use:   "seed <file.json>",
	Short: "Load tickets, invoices and contacts into the database",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("invalid seed file: %w", err)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	for _, t := range seed.Tickets {
		if err := a.store.InsertTicket(ctx, t); err != nil {
			return err
		}
	}
	for _, inv := range seed.Invoices {
		if err := a.store.InsertInvoice(ctx, inv); err != nil {
			return err
		}
	}
	for _, c := range seed.Contacts {
		if err := a.store.InsertContact(ctx, c.Name, c.Email, c.Team, c.IsManager); err != nil {
			return err
		}
	}

	fmt.Printf("Seeded %d tickets, %d invoices, %d contacts.\n",
		len(seed.Tickets), len(seed.Invoices), len(seed.Contacts))
	return nil
}
