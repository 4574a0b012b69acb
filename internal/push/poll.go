package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

type pollResponse struct {
	Cursor string  `json:"cursor"`
	Events []frame `json:"events"`
}

// poll performs one long-poll request. An empty cursor asks the server for
// its current position, so nothing before the connection is replayed.
func (c *Client) poll(ctx context.Context, header http.Header, cursor string) (string, []frame, error) {
	target := c.host + "/events/poll?cursor=" + url.QueryEscape(cursor)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return cursor, nil, fmt.Errorf("create poll request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return cursor, nil, fmt.Errorf("poll: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return cursor, nil, nil
	default:
		return cursor, nil, fmt.Errorf("poll: unexpected status %d", resp.StatusCode)
	}

	var pr pollResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return cursor, nil, fmt.Errorf("decode poll response: %w", err)
	}
	if pr.Cursor == "" {
		pr.Cursor = cursor
	}
	return pr.Cursor, pr.Events, nil
}

func (c *Client) pollLoop(ctx context.Context, header http.Header, cursor string) error {
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		next, frames, err := c.poll(ctx, header, cursor)
		if err != nil {
			return err
		}
		cursor = next
		c.dispatchAll(frames)
	}
}
