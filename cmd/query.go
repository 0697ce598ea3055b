package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/podcast-rag/internal/retrieval"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Retrieve the transcript passages most relevant to a question",
	Long:  `Embeds the question and returns the closest transcript chunks, best match first.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().Int("k", 0, "number of passages (default query.top_k)")
	queryCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	queryText := strings.Join(args, " ")

	k, _ := cmd.Flags().GetInt("k")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	a.warnIfEmpty(ctx)

	passages, err := a.retriever.Retrieve(ctx, queryText, k)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if jsonOutput {
		return printPassagesJSON(passages)
	}

	if len(passages) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	printPassages(passages)
	return nil
}

type passageJSON struct {
	Rank  int     `json:"rank"`
	ID    int64   `json:"id"`
	Score float32 `json:"score"`
	Text  string  `json:"text"`
}

func printPassagesJSON(passages []retrieval.Passage) error {
	out := make([]passageJSON, len(passages))
	for i, p := range passages {
		out[i] = passageJSON{Rank: i + 1, ID: p.ID, Score: p.Score, Text: p.Text}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printPassages(passages []retrieval.Passage) {
	fmt.Printf("Found %d passages:\n\n", len(passages))
	for i, p := range passages {
		fmt.Printf("  %d. [%.3f] #%d\n", i+1, p.Score, p.ID)
		for _, line := range strings.Split(p.Text, "\n") {
			fmt.Printf("     %s\n", line)
		}
		fmt.Println()
	}
}
