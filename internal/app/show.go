package app

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"oraclewatcher/internal/storage"
)

// Show prints recent events, or a single feed's recent quotes when
// opts.FeedID is set.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show history")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if opts.FeedID != nil {
		return a.showQuotes(ctx, store, *opts.FeedID, opts.Limit)
	}
	return a.showEvents(ctx, store, opts.Limit)
}

func (a *App) showQuotes(ctx context.Context, store *storage.Store, feedID [32]byte, limit int) error {
	quotes, err := store.ListRecentQuotes(ctx, feedID, limit)
	if err != nil {
		return err
	}
	if len(quotes) == 0 {
		fmt.Fprintln(os.Stdout, "no quotes found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tSlot\tValue\tOracles\tQueue")
	for _, q := range quotes {
		fmt.Fprintf(
			writer,
			"%s\t%d\t%s\t%d\t%s\n",
			timeFromMs(q.TimestampMs).Format(time.RFC3339),
			q.Slot,
			q.Value.String(),
			len(q.Oracles),
			hex.EncodeToString(q.Queue[:]),
		)
	}
	return writer.Flush()
}

func (a *App) showEvents(ctx context.Context, store *storage.Store, limit int) error {
	events, err := store.ListRecentEvents(ctx, limit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Fprintln(os.Stdout, "no events found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tKind\tPayload")
	for _, e := range events {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\n",
			e.CreatedAt.UTC().Format(time.RFC3339),
			e.Kind,
			sanitizeInline(string(e.Payload)),
		)
	}
	return writer.Flush()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
