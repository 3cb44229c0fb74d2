package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var clearHistoryCmd = &cobra.Command{
	Use:   "clear-history <user_id>",
	Short: "Delete a user's chat history",
	Args:  cobra.ExactArgs(1),
	RunE:  runClearHistory,
}

var safetyEventsCmd = &cobra.Command{
	Use:   "safety-events <user_id>",
	Short: "List recent safety alerts for a user",
	Long: `List the safety alerts raised for a user, newest first.

Only the matched phrase and its source are stored, never the message itself.`,
	Args: cobra.ExactArgs(1),
	RunE: runSafetyEvents,
}

func init() {
	safetyEventsCmd.Flags().Int("limit", 50, "maximum number of events")

	rootCmd.AddCommand(clearHistoryCmd)
	rootCmd.AddCommand(safetyEventsCmd)
}

func runClearHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, closeStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.Conversations.Delete(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	fmt.Printf("Chat history cleared for %s\n", args[0])
	return nil
}

func runSafetyEvents(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, closeStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	events, err := store.Safety.ListByUser(ctx, args[0], limit)
	if err != nil {
		return fmt.Errorf("failed to list safety events: %w", err)
	}

	if jsonOut {
		return printJSON(map[string]any{
			"events": events,
			"count":  len(events),
		})
	}

	if len(events) == 0 {
		fmt.Println("No safety events found")
		return nil
	}

	w := newTable()
	printTableHeader(w, "ID", "SOURCE", "PHRASE", "CREATED")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.ID,
			e.Source,
			e.MatchedPhrase,
			e.CreatedAt.Format(time.RFC3339),
		)
	}
	return w.Flush()
}
