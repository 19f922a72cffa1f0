package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rsclarke/ingestcam/internal/async"
	"github.com/rsclarke/ingestcam/internal/client"
	"github.com/rsclarke/ingestcam/internal/session"
)

func newClient() (*client.Client, error) {
	timeout, err := cfg.Timeout()
	if err != nil {
		return nil, err
	}
	return client.NewClient(cfg.StudioURL, cfg.IngestionURL,
		client.WithTimeout(timeout),
		client.WithLogger(logger.Named("client")),
	), nil
}

func newFlow(sess *session.Session) (*session.Flow, error) {
	c, err := newClient()
	if err != nil {
		return nil, err
	}
	return session.NewFlow(c, sess, logger.Named("session")), nil
}

// await receives from ch, printing msg and a dot per tick to w so the
// user sees progress while the request is in flight.
func await[T any](ctx context.Context, w io.Writer, msg string, ch <-chan async.Result[T]) async.Result[T] {
	fmt.Fprint(w, msg)
	defer fmt.Fprintln(w)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case r := <-ch:
			return r
		case <-ticker.C:
			fmt.Fprint(w, ".")
		case <-ctx.Done():
			return async.Result[T]{Err: ctx.Err()}
		}
	}
}
