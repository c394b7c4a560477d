package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/reuteras/rwreader/internal/article"
	"github.com/reuteras/rwreader/internal/config"
	"github.com/reuteras/rwreader/internal/tui/view"
)

const commandTimeout = 2 * time.Minute

var (
	flagListRefresh bool
	flagListLimit   int
)

var listCmd = &cobra.Command{
	Use:       "list <category>",
	Short:     "Print the articles of one category",
	Long:      "Print id, read state and title of every article in inbox, later, archive or feed.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"inbox", "later", "archive", "feed"},
	RunE:      runList,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one article as Markdown",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Delete the local snapshot database",
	Args:  cobra.NoArgs,
	RunE:  runClearCache,
}

func init() {
	listCmd.Flags().BoolVar(&flagListRefresh, "refresh", false, "ignore cached data and fetch from Readwise")
	listCmd.Flags().IntVar(&flagListLimit, "limit", 0, "print at most this many articles (0 means all)")
}

func runList(cmd *cobra.Command, args []string) error {
	c, err := article.ParseCategory(args[0])
	if err != nil {
		return err
	}
	if flagListLimit < 0 {
		return fmt.Errorf("--limit must not be negative, got %d", flagListLimit)
	}

	deps, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()
	articles, err := deps.service.Refresh(ctx, c, flagListRefresh, flagListLimit)
	if err != nil {
		if len(articles) == 0 {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v (showing cached articles)\n", err)
	}
	return writeArticleList(cmd.OutOrStdout(), articles)
}

func writeArticleList(w io.Writer, articles []article.Article) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, a := range articles {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\n", a.ID, view.ReadMarker(a), view.ArticleLabel(a, true)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func runShow(cmd *cobra.Command, args []string) error {
	deps, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()
	markdown, _, err := deps.service.Document(ctx, args[0])
	if err != nil {
		return err
	}
	_, err = io.WriteString(cmd.OutOrStdout(), markdown)
	return err
}

// runClearCache only needs the snapshot path, so it skips token resolution.
func runClearCache(cmd *cobra.Command, args []string) error {
	path := config.DefaultSnapshotPath()
	if flagConfig != "" || os.Getenv("READWISE_TOKEN") != "" {
		if cfg, err := config.Load(cmd.Context(), flagConfig); err == nil {
			path = cfg.SnapshotPath
		}
	}
	return removeSnapshot(cmd.OutOrStdout(), path)
}

func removeSnapshot(w io.Writer, path string) error {
	var removed bool
	for _, p := range []string{path, path + "-wal", path + "-shm", path + "-journal"} {
		err := os.Remove(p)
		switch {
		case err == nil:
			removed = removed || p == path
		case errors.Is(err, os.ErrNotExist):
		default:
			return fmt.Errorf("remove snapshot: %w", err)
		}
	}
	if removed {
		fmt.Fprintf(w, "Removed %s\n", path)
	} else {
		fmt.Fprintf(w, "No snapshot at %s\n", path)
	}
	return nil
}
