package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/academate/internal/api"
	"github.com/kalambet/academate/internal/config"
)

type apiClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var newAPIClient = func() (*apiClient, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return &apiClient{
		baseURL:    "http://" + cfg.Addr(),
		token:      cfg.Server.APIToken,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server not reachable, is academate serve running? (%w)", err)
	}
	return resp, nil
}

func (c *apiClient) get(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *apiClient) post(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *apiClient) delete(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}

// decodeJSON closes resp and decodes its body into v, turning the server's
// error envelope into an error.
func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("server returned %d (failed to read body: %w)", resp.StatusCode, err)
		}
		var env struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &env) == nil && env.Error.Message != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, env.Error.Message)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if v == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *apiClient) chat(ctx context.Context, sessionID, message string) (*api.ChatResponse, error) {
	resp, err := c.post(ctx, "/api/chat", api.ChatRequest{Message: message, SessionID: sessionID})
	if err != nil {
		return nil, err
	}
	var out api.ChatResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) history(ctx context.Context, sessionID string, limit int) (*api.HistoryResponse, error) {
	path := "/api/session/" + url.PathEscape(sessionID) + "/history"
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	var out api.HistoryResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) sessions(ctx context.Context) ([]string, error) {
	resp, err := c.get(ctx, "/api/sessions")
	if err != nil {
		return nil, err
	}
	var out api.SessionsResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

func (c *apiClient) clearSession(ctx context.Context, sessionID string) error {
	resp, err := c.delete(ctx, "/api/session/"+url.PathEscape(sessionID))
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil)
}

// --- send ---

var sendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Send a message to a running server",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		out, err := client.chat(cmd.Context(), sessionID, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out.Response)
		return nil
	},
}

func init() {
	sendCmd.Flags().String("session", cliSession, "session id")
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history [session]",
	Short: "Show or clear the transcript of a session on a running server",
	Long: `Show or clear the transcript of a session on a running server.
Without a session id, lists the known sessions.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		wipe, _ := cmd.Flags().GetBool("clear")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if len(args) == 0 {
			ids, err := client.sessions(cmd.Context())
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				printWarning("No sessions yet")
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		}

		if wipe {
			if err := client.clearSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			printSuccess("Cleared session %s", args[0])
			return nil
		}

		out, err := client.history(cmd.Context(), args[0], limit)
		if err != nil {
			return err
		}
		if len(out.History) == 0 {
			printWarning("No history for session %s", out.SessionID)
			return nil
		}
		for _, e := range out.History {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", colorize(colorBold, e.Role+":"), e.Content)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 0, "most recent entries to show (0 = all)")
	historyCmd.Flags().Bool("clear", false, "clear the session instead of showing it")
}
