package clickup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"clicksync/internal/config"
	"clicksync/internal/metrics"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Client is a thin typed wrapper over the ClickUp v2 REST API. Requests
// are sequential and paced by a client-side limiter; there are no
// retries, callers see every failure.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

func NewClient(cfg config.ClickUpConfig, logger *zerolog.Logger) *Client {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 100
	}

	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    cfg.BaseURL,
		token:      cfg.APIToken,
		limiter:    rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
		logger:     logger.With().Str("component", "clickup").Logger(),
	}
}

// CustomFields returns the workspace-level custom field definitions.
func (c *Client) CustomFields(ctx context.Context, workspaceID string) ([]CustomFieldDefinition, error) {
	var resp customFieldsResponse
	if err := c.get(ctx, fmt.Sprintf("/workspace/%s/custom_fields", workspaceID), "custom_fields", &resp); err != nil {
		return nil, err
	}
	return resp.CustomFields, nil
}

// CustomTaskTypes returns the workspace-level custom task type definitions.
func (c *Client) CustomTaskTypes(ctx context.Context, workspaceID string) ([]CustomTaskType, error) {
	var resp customTaskTypesResponse
	if err := c.get(ctx, fmt.Sprintf("/workspace/%s/custom_task_types", workspaceID), "custom_task_types", &resp); err != nil {
		return nil, err
	}
	return resp.CustomTaskTypes, nil
}

// Spaces returns the spaces under a workspace.
func (c *Client) Spaces(ctx context.Context, workspaceID string) ([]Space, error) {
	var resp spacesResponse
	if err := c.get(ctx, fmt.Sprintf("/team/%s/space", workspaceID), "spaces", &resp); err != nil {
		return nil, err
	}
	return resp.Spaces, nil
}

// Lists returns the lists under a space, folder-nested lists included.
func (c *Client) Lists(ctx context.Context, spaceID string) ([]List, error) {
	var resp listsResponse
	if err := c.get(ctx, fmt.Sprintf("/space/%s/list", spaceID), "lists", &resp); err != nil {
		return nil, err
	}
	return resp.Lists, nil
}

// Tasks returns the first page of tasks under a list. Pagination is not
// followed; a truncated page is logged and otherwise ignored.
func (c *Client) Tasks(ctx context.Context, listID string) ([]Task, error) {
	var resp tasksResponse
	if err := c.get(ctx, fmt.Sprintf("/list/%s/task", listID), "tasks", &resp); err != nil {
		return nil, err
	}
	if resp.LastPage != nil && !*resp.LastPage {
		c.logger.Debug().Str("list_id", listID).Msg("tasks response paginated, only first page retrieved")
	}
	return resp.Tasks, nil
}

func (c *Client) get(ctx context.Context, path, endpoint string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Content-Type", "application/json")

	metrics.IncRequest(endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: unexpected status %d: %s", path, resp.StatusCode, snippet)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
