package syncclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/linkboard/linkboard/internal/events"
	"github.com/linkboard/linkboard/internal/updates"
	"github.com/linkboard/linkboard/internal/utils"
)

// HTTPDialer opens server-sent event streams against the realtime
// endpoint. The list key is the list's public slug.
type HTTPDialer struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func (d *HTTPDialer) httpClient() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	// No overall timeout: the stream is long-lived by design.
	return http.DefaultClient
}

// Dial opens the stream, resuming from lastEventID when non-zero.
func (d *HTTPDialer) Dial(ctx context.Context, slug string, lastEventID int64) (EventSource, error) {
	endpoint := fmt.Sprintf("%s/realtime/list/%s/events", strings.TrimSuffix(d.BaseURL, "/"), url.PathEscape(slug))
	if lastEventID > 0 {
		endpoint += "?lastEventId=" + strconv.FormatInt(lastEventID, 10)
	}

	reqCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if d.Token != "" {
		req.Header.Set("Authorization", "Bearer "+d.Token)
	}

	resp, err := d.httpClient().Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		utils.Close(resp.Body)
		cancel()
		return nil, fmt.Errorf("stream endpoint returned %s", resp.Status)
	}

	// Closing the source cancels the request too, so a read blocked on
	// a silent connection cannot outlive the teardown.
	body := &utils.CancelOnClose{ReadCloser: resp.Body, Cancel: cancel}
	return &sseSource{body: body, reader: bufio.NewReader(body)}, nil
}

// sseSource parses "id:"/"data:" framed messages off one response body.
type sseSource struct {
	body   io.ReadCloser
	reader *bufio.Reader
}

// Next blocks until a complete message arrives. Cancellation is
// delivered by Close, which unblocks the underlying read.
func (s *sseSource) Next(ctx context.Context) (events.Envelope, error) {
	var id int64
	var data string

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if ctx.Err() != nil {
				return events.Envelope{}, ctx.Err()
			}
			return events.Envelope{}, err
		}
		line = strings.TrimRight(line, "\r\n")

		switch {
		case line == "":
			if data == "" {
				continue
			}
			var env events.Envelope
			if err := json.Unmarshal([]byte(data), &env); err != nil {
				return events.Envelope{}, fmt.Errorf("failed to decode stream envelope: %w", err)
			}
			if env.Timestamp == 0 {
				env.Timestamp = id
			}
			return env, nil

		case strings.HasPrefix(line, "id:"):
			id, _ = strconv.ParseInt(strings.TrimSpace(line[len("id:"):]), 10, 64)

		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(line[len("data:"):])
		}
	}
}

func (s *sseSource) Close() error {
	return s.body.Close()
}

// HTTPFetcher performs the unified read over HTTP.
type HTTPFetcher struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func (f *HTTPFetcher) httpClient() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return &http.Client{Timeout: 15 * time.Second}
}

// Fetch retrieves the authoritative state for a list by slug.
func (f *HTTPFetcher) Fetch(ctx context.Context, slug string) (*updates.Update, error) {
	endpoint := fmt.Sprintf("%s/lists/%s/updates", strings.TrimSuffix(f.BaseURL, "/"), url.PathEscape(slug))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build updates request: %w", err)
	}
	if f.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.Token)
	}

	resp, err := f.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch updates: %w", err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("updates endpoint returned %s", resp.Status)
	}

	var update updates.Update
	if err := json.NewDecoder(resp.Body).Decode(&update); err != nil {
		return nil, fmt.Errorf("failed to decode updates response: %w", err)
	}
	return &update, nil
}
