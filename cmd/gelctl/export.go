package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/refuel-athletics/gelstore/internal/domain/order"
	"github.com/refuel-athletics/gelstore/internal/notify"
	"github.com/refuel-athletics/gelstore/internal/storage/postgres"
)

// orderSource iterates recorded orders oldest first.
type orderSource interface {
	Each(ctx context.Context, from, to time.Time, fn func(*order.Order) error) error
}

func newExportOrdersCmd() *cobra.Command {
	var (
		databaseURL string
		out         string
		since       time.Duration
		fromStr     string
		toStr       string
	)
	cmd := &cobra.Command{
		Use:   "export-orders",
		Short: "Export recorded orders as gzip-compressed order.confirmed JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if databaseURL == "" {
				databaseURL = os.Getenv("DATABASE_URL")
			}
			if databaseURL == "" {
				return errors.New("database URL is required: set --database-url or DATABASE_URL")
			}
			to := time.Now().UTC()
			if toStr != "" {
				t, err := time.Parse(time.RFC3339, toStr)
				if err != nil {
					return errors.Wrap(err, "parse --to")
				}
				to = t
			}
			from := to.Add(-since)
			if fromStr != "" {
				t, err := time.Parse(time.RFC3339, fromStr)
				if err != nil {
					return errors.Wrap(err, "parse --from")
				}
				from = t
			}
			if !from.Before(to) {
				return errors.Errorf("empty range %s..%s", from.Format(time.RFC3339), to.Format(time.RFC3339))
			}

			lg, err := zap.NewProduction()
			if err != nil {
				return errors.Wrap(err, "create logger")
			}
			defer func() { _ = lg.Sync() }()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()

			pool, err := postgres.NewPool(ctx, databaseURL)
			if err != nil {
				return errors.Wrap(err, "connect to database")
			}
			defer pool.Close()

			w := cmd.OutOrStdout()
			if out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return errors.Wrap(err, "create output")
				}
				defer func() { _ = f.Close() }()
				w = f
			}

			start := time.Now()
			n, err := exportOrders(ctx, postgres.NewOrderRepository(pool), w, from, to)
			if err != nil {
				return err
			}
			lg.Info("Orders exported",
				zap.Int("orders", n),
				zap.Time("from", from),
				zap.Time("to", to),
				zap.String("out", out),
				zap.Duration("took", time.Since(start)),
			)
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	fs.StringVarP(&out, "out", "o", "orders.jsonl.gz", "output file, - for stdout")
	fs.DurationVar(&since, "since", 24*time.Hour, "export orders created within this window before --to")
	fs.StringVar(&fromStr, "from", "", "range start (RFC3339), overrides --since")
	fs.StringVar(&toStr, "to", "", "range end (RFC3339), defaults to now")
	return cmd
}

// exportOrders writes one JSON line per order in [from, to) through a
// parallel gzip writer and returns the number of orders written.
func exportOrders(ctx context.Context, src orderSource, w io.Writer, from, to time.Time) (int, error) {
	zw := pgzip.NewWriter(w)
	bw := bufio.NewWriter(zw)

	n := 0
	err := src.Each(ctx, from, to, func(o *order.Order) error {
		if _, err := bw.Write(notify.OrderRecord(o)); err != nil {
			return err
		}
		n++
		return bw.WriteByte('\n')
	})
	if err != nil {
		return n, errors.Wrap(err, "export orders")
	}
	if err := bw.Flush(); err != nil {
		return n, errors.Wrap(err, "flush")
	}
	if err := zw.Close(); err != nil {
		return n, errors.Wrap(err, "close gzip")
	}
	return n, nil
}
