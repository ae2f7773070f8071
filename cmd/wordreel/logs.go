package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"wordreel/internal/logging"
)

// logTailResponse mirrors internal/httpapi's wire shape for /logs.
type logTailResponse struct {
	Events []logging.LogEvent `json:"events"`
	Next   uint64             `json:"next"`
}

func newLogsCommand() *cobra.Command {
	var (
		daemonURL string
		follow    bool
		lines     int
	)

	cmd := &cobra.Command{
		Use:           "logs",
		Short:         "Tail recent wordreeld activity from its Composition Service log stream",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogsTail(cmd.Context(), daemonURL, lines, follow)
		},
	}

	cmd.Flags().StringVar(&daemonURL, "daemon-url", "http://127.0.0.1:8080", "Base URL of a running wordreeld Composition Service")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming new log events as they arrive")
	cmd.Flags().IntVar(&lines, "lines", 50, "Number of most recent events to print before following")

	return cmd
}

func runLogsTail(ctx context.Context, daemonURL string, lines int, follow bool) error {
	colorize := shouldColorize(stdout())
	client := &http.Client{Timeout: 30 * time.Second}

	var since uint64
	for {
		resp, err := fetchLogTail(ctx, client, daemonURL, since, lines, follow && since > 0)
		if err != nil {
			return fmt.Errorf("fetch log tail: %w", err)
		}
		for _, evt := range resp.Events {
			fmt.Fprintln(stdout(), renderStatusLine(evt.Component, logKindFor(evt.Level), evt.Message, colorize))
		}
		since = resp.Next
		if !follow {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

func fetchLogTail(ctx context.Context, client *http.Client, daemonURL string, since uint64, limit int, wait bool) (*logTailResponse, error) {
	query := url.Values{}
	query.Set("since", strconv.FormatUint(since, 10))
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if wait {
		query.Set("wait", "true")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, daemonURL+"/logs?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	httpResp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daemon returned status %d", httpResp.StatusCode)
	}

	var resp logTailResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode log tail response: %w", err)
	}
	return &resp, nil
}

func logKindFor(level string) statusKind {
	switch level {
	case "ERROR":
		return statusError
	case "WARN":
		return statusWarn
	default:
		return statusInfo
	}
}
