// Command dcbev is a terminal chat client for the DealersCloud BEV
// assistant backend.
//
// Usage:
//
//	dcbev [flags]
//
// Flags:
//
//	-backend string    Backend base URL (or DCBEV_BACKEND_URL; default http://localhost:8000)
//	-token string      Bearer token (or DCBEV_API_TOKEN)
//	-transcript string Path to a transcript file to resume and save
//	-context string    Dealership context as inline JSON, sent with every message
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/dealerscloud/dcbev"
	"github.com/dealerscloud/dcbev/backend"
	bt "github.com/dealerscloud/dcbev/bubbletea"
	"github.com/dealerscloud/dcbev/chat"
	dcjson "github.com/dealerscloud/dcbev/json"
	"github.com/dealerscloud/dcbev/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dcbev: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		backendFlag    = flag.String("backend", "", "Backend base URL (default "+defaultBackendURL+")")
		tokenFlag      = flag.String("token", "", "Bearer token (overrides DCBEV_API_TOKEN)")
		transcriptPath = flag.String("transcript", "", "Path to a transcript file to resume and save")
		contextFlag    = flag.String("context", "", "Dealership context as inline JSON")
	)
	flag.Parse()

	// Handle OS signals for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := resolveConfig(*backendFlag, *tokenFlag,
		os.Getenv("DCBEV_BACKEND_URL"), os.Getenv("DCBEV_API_TOKEN"))

	dealershipCtx, err := parseContext(*contextFlag)
	if err != nil {
		return err
	}

	var opts []backend.Option
	if cfg.token != "" {
		opts = append(opts, backend.WithToken(cfg.token))
	}
	client := backend.New(cfg.baseURL, opts...)

	st := store.New()

	// Resume a saved transcript if one exists at the given path.
	createdAt := time.Now()
	if *transcriptPath != "" {
		switch transcript, err := dcjson.Load(*transcriptPath); {
		case err == nil:
			st.Restore(transcript.ConversationID, transcript.Messages)
			createdAt = transcript.CreatedAt
		case errors.Is(err, os.ErrNotExist):
			// First run with this path; start fresh.
		default:
			return fmt.Errorf("load transcript: %w", err)
		}
	}

	var ctrlOpts []chat.Option
	if dealershipCtx != nil {
		ctrlOpts = append(ctrlOpts, chat.WithDealershipContext(dealershipCtx))
	}
	ctrl := chat.New(st, client, ctrlOpts...)

	// A failed probe is a warning, not a startup failure; the backend may
	// come up after the client.
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	if !client.Healthy(probeCtx) {
		fmt.Fprintf(os.Stderr, "dcbev: backend %s is not responding; messages will fail until it is up\n", cfg.baseURL)
	}
	cancel()

	snapshots, unsubscribe := st.Subscribe()
	model := bt.New(ctrl, snapshots, unsubscribe, dcbev.DefaultTheme())

	if err := bt.Run(ctx, model); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}

	return saveTranscript(*transcriptPath, st, createdAt)
}

// saveTranscript persists the conversation on exit. With no explicit path,
// non-empty conversations are auto-saved under the home directory.
func saveTranscript(path string, st *store.Store, createdAt time.Time) error {
	snap := st.Snapshot()
	if len(snap.Messages) == 0 {
		return nil
	}

	transcript := dcbev.Transcript{
		ConversationID: st.ConversationID(),
		CreatedAt:      createdAt,
		UpdatedAt:      time.Now(),
		Messages:       snap.Messages,
	}

	autoSaved := path == ""
	if autoSaved {
		path = defaultTranscriptPath(transcript.ConversationID)
	}
	if err := dcjson.Save(path, transcript); err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	if autoSaved {
		fmt.Fprintf(os.Stderr, "Transcript saved to %s\n", path)
	}
	return nil
}

func defaultTranscriptPath(conversationID string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".dcbev", "transcripts", conversationID+".json")
}
