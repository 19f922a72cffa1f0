package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rsclarke/ingestcam/internal/db"
)

type historyStore struct {
	db.UploadStore
}

func (h *historyStore) Close() error { return h.DB.Close() }

// openHistory opens the upload history, or returns nil when it is
// disabled by an empty history_db.
func openHistory() (*historyStore, error) {
	if cfg.HistoryDB == "" {
		return nil, nil
	}
	database, err := db.Open(cfg.HistoryDB)
	if err != nil {
		return nil, err
	}
	return &historyStore{db.UploadStore{DB: database}}, nil
}

var historyFlags struct {
	limit int
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent upload attempts",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyFlags.limit, "limit", 20, "number of rows to show, 0 for all")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	h, err := openHistory()
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	if h == nil {
		return fmt.Errorf("upload history is disabled (history_db is empty)")
	}
	defer h.Close()

	uploads, err := db.ListUploads(ctx, h.DB, historyFlags.limit)
	if err != nil {
		return err
	}
	if len(uploads) == 0 {
		fmt.Fprintln(out, "No uploads recorded.")
		return nil
	}

	fmt.Fprintf(out, "%-19s  %-16s  %-8s  %-8s  %s\n", "TIME", "LABEL", "BYTES", "STATUS", "MESSAGE")
	for _, u := range uploads {
		status := "ok"
		if !u.OK {
			status = "failed"
		}
		if u.StatusCode != 0 {
			status = fmt.Sprintf("%s/%d", status, u.StatusCode)
		}
		created := time.Unix(u.CreatedAt, 0).Format("2006-01-02 15:04:05")
		fmt.Fprintf(out, "%-19s  %-16s  %-8d  %-8s  %s\n", created, u.Label, u.Size, status, u.Message)
	}

	total, ok, err := db.CountUploads(ctx, h.DB)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d of %d recorded uploads succeeded.\n", ok, total)
	return nil
}
