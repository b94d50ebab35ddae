package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	reloadAddr          string
	reloadToken         string
	reloadBlockBreaking bool
	reloadActor         string
)

// newReloadCmd builds the "reload" subcommand: an operator trigger for a
// one-shot validated catalog reload against a running instance's admin
// endpoint, grounded on the graceful-shutdown HTTP client pattern in
// original_source/resolver-go/cmd/resolver/main.go.
func newReloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reload",
		Short: "Trigger a catalog reload against a running resolver instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReload()
		},
	}
	cmd.Flags().StringVar(&reloadAddr, "addr", "http://localhost:8080", "base URL of the running resolver instance")
	cmd.Flags().StringVar(&reloadToken, "token", "", "approver bearer token")
	cmd.Flags().BoolVar(&reloadBlockBreaking, "block-breaking", true, "reject the reload if it removes or rebinds active monikers")
	cmd.Flags().StringVar(&reloadActor, "actor", "cli-reload", "actor recorded against this reload")
	return cmd
}

func runReload() error {
	body, err := json.Marshal(map[string]any{
		"block_breaking": reloadBlockBreaking,
		"actor":          reloadActor,
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, reloadAddr+"/admin/reload", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if reloadToken != "" {
		req.Header.Set("Authorization", "Bearer "+reloadToken)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("reload request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reload rejected: %s: %s", resp.Status, string(respBody))
	}

	fmt.Println(string(respBody))
	return nil
}
