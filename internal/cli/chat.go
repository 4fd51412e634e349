package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/querydesk/querydesk/internal/chatlog"
	"github.com/querydesk/querydesk/pkg/agent"
	"github.com/querydesk/querydesk/pkg/chat"
	"github.com/querydesk/querydesk/pkg/ticket"
)

var (
	chatUser    string
	chatRole    string
	chatTeams   []string
	chatMessage string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the ticket assistant",
	Long: `Start an interactive session with the ticket assistant. The assistant
only shows and modifies what the given user is allowed to see. Use
--message for a single question instead of a session.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatUser, "user", "", "user name (required)")
	chatCmd.Flags().StringVar(&chatRole, "role", "employee", "user role (employee, manager, admin)")
	chatCmd.Flags().StringSliceVar(&chatTeams, "team", nil, "team membership, repeatable")
	chatCmd.Flags().StringVar(&chatMessage, "message", "", "ask a single question and exit")
	chatCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	identity := ticket.Identity{
		Name:  chatUser,
		Role:  ticket.ParseRole(chatRole),
		Teams: chatTeams,
	}

	assistant, err := chat.New(chat.Config{
		Identity: identity,
		Store:    a.store,
		Provider: a.provider,
		Model:    a.cfg.AI.Model,
		Logger:   a.log.Zerolog(),
	})
	if err != nil {
		return err
	}

	interactions, err := chatlog.Open(filepath.Join(a.cfg.DataDir, "chat.jsonl"))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	ask := func(question string, prior []agent.Message) []agent.Message {
		reply, transcript, tokens, err := assistant.Run(ctx, question, prior)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return prior
		}
		fmt.Println(reply)
		turns := len(transcript) - len(prior)
		if _, err := interactions.Append(identity, question, reply, turns, tokens); err != nil {
			lg := a.log.Zerolog()
			lg.Warn().Err(err).Msg("Failed to record chat interaction")
		}
		return transcript
	}

	if chatMessage != "" {
		ask(chatMessage, nil)
		return nil
	}

	fmt.Printf("Connected as %s (%s). Type 'exit' to quit.\n", identity.Name, identity.Role)
	scanner := bufio.NewScanner(os.Stdin)
	var transcript []agent.Message
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		transcript = ask(line, transcript)
	}
	return scanner.Err()
}
