package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the podcast hosts a question",
	Long:  `Retrieves the most relevant transcript passages and has the configured LLM answer in the hosts' style.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().Int("k", 0, "passages of context (default query.top_k)")
	askCmd.Flags().Bool("show-context", false, "print the retrieved passages before the answer")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	question := strings.Join(args, " ")

	k, _ := cmd.Flags().GetInt("k")
	showContext, _ := cmd.Flags().GetBool("show-context")

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	a.warnIfEmpty(ctx)

	responder, err := a.newResponder(k)
	if err != nil {
		return err
	}

	ans, err := responder.Ask(ctx, question)
	if err != nil {
		return err
	}

	if showContext {
		printPassages(ans.Passages)
	}
	fmt.Printf("Q: %s\nA:\n%s\n", question, ans.Response)
	return nil
}
