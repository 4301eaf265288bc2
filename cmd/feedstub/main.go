// Command feedstub runs the stand-in news feed server for local
// development. It serves the listing endpoint on :8090 with a generated
// dataset, which is where the default client configuration points.
//
// Usage:
//
//	feedstub                     Serve 30 articles per category on :8090
//	feedstub -addr :9000         Serve on a different address
//	feedstub -per-category 120   Serve a deeper feed
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/yx-shi/NewsClient-sub001/internal/logging"
	"github.com/yx-shi/NewsClient-sub001/internal/stubfeed"
)

const shutdownTimeout = 10 * time.Second

func main() {
	addr := flag.String("addr", ":8090", "listen address")
	perCategory := flag.Int("per-category", 30, "articles generated per category")
	flag.Parse()

	logging.InitConsole()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	dataset := stubfeed.DefaultDataset(*perCategory)
	srv := stubfeed.New(dataset)
	logging.Info("feed stub starting", "addr", *addr, "articles", len(dataset))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(*addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logging.Fatal("feed stub failed", "error", err)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("feed stub shutdown failed", "error", err)
		os.Exit(1)
	}
	logging.Info("feed stub stopped")
}
