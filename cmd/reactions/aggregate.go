package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abelbrown/reactions/internal/logging"
	"github.com/abelbrown/reactions/internal/model"
)

var (
	flagSkipCache bool
	flagJSON      bool
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate <url or topic>",
	Short: "Run one aggregation and print it",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAggregate,
}

func init() {
	aggregateCmd.Flags().BoolVar(&flagSkipCache, "skip-cache", false, "recompute even when a cached result exists")
	aggregateCmd.Flags().BoolVar(&flagJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(aggregateCmd)
}

func runAggregate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logging.InitWriter(cmd.ErrOrStderr(), cfg.LogLevel)

	ctx := commandContext(cmd)
	a, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.svc.Aggregate(ctx, strings.Join(args, " "), flagSkipCache)
	if err != nil {
		return err
	}
	if flagJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printResult(cmd.OutOrStdout(), res)
	return nil
}

func printResult(w io.Writer, res model.AggregationResult) {
	if res.Article != nil {
		fmt.Fprintf(w, "%s (%s)\n", res.Article.Title, res.Article.Source)
		if res.Article.Summary != "" {
			fmt.Fprintf(w, "  %s\n", res.Article.Summary)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Web (%d):\n", len(res.Web))
	for i, c := range res.Web {
		flag := ""
		if c.DownloadRisk {
			flag = " [download]"
		}
		if c.Category != "" {
			flag += " [" + c.Category + "]"
		}
		fmt.Fprintf(w, "  %2d. %s - %s%s\n      %s\n", i+1, c.Title, c.Source, flag, c.URL)
	}

	fmt.Fprintf(w, "\nReddit (%d):\n", len(res.Reddit))
	for i, c := range res.Reddit {
		fmt.Fprintf(w, "  %2d. [%s] r/%s: %s (score %d, %d comments)\n      %s\n",
			i+1, c.MatchType, c.Subreddit, c.Title, c.Engagement.Score, c.Engagement.NumComments, c.URL)
	}

	if len(res.Twitter) > 0 {
		fmt.Fprintf(w, "\nX (%d):\n", len(res.Twitter))
		for i, c := range res.Twitter {
			fmt.Fprintf(w, "  %2d. @%s: %s (%d likes)\n", i+1, c.Author, c.Title, c.Engagement.Likes)
		}
	}
}
