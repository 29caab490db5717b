// Package providers contains one adapter per external service. Each
// adapter knows how to call its provider's REST API with a bearer
// token and how to map provider records into the local mirror tables.
// Adapters never retry; failed calls surface as
// *models.ExternalAPIError and the queue processor decides what to do.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jarvisapp/jarvis-sync/models"
)

const (
	defaultCalendarBaseURL = "https://www.googleapis.com/calendar/v3"
	defaultSlackBaseURL    = "https://slack.com/api"
	defaultNotionBaseURL   = "https://api.notion.com/v1"

	notionVersion = "2022-06-28"
)

const requestTimeout = 30 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}

// doJSON performs an authenticated request and decodes the JSON
// response into out (which may be nil for fire-and-forget calls).
// Non-2xx responses become *models.ExternalAPIError.
func doJSON(ctx context.Context, client *http.Client, provider models.Provider, method, url, accessToken string, headers map[string]string, body, out any) error {
	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", provider, err)
	}

	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return &models.ExternalAPIError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Message:    string(bytes.TrimSpace(msg)),
		}
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
