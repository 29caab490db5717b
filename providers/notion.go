package providers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/jarvisapp/jarvis-sync/models"
)

// Notion adapts the Notion REST API.
type Notion struct {
	client  *http.Client
	baseURL string
	mirror  models.MirrorRepository
	logger  *zap.Logger
}

func NewNotion(mirror models.MirrorRepository, logger *zap.Logger) *Notion {
	return &Notion{
		client:  newHTTPClient(),
		baseURL: defaultNotionBaseURL,
		mirror:  mirror,
		logger:  logger,
	}
}

func (n *Notion) SetBaseURL(u string) { n.baseURL = u }

func (n *Notion) headers() map[string]string {
	return map[string]string{"Notion-Version": notionVersion}
}

type richText struct {
	PlainText string `json:"plain_text"`
}

// Database is a provider-native Notion database.
type Database struct {
	ID    string     `json:"id"`
	Title []richText `json:"title"`
}

// DisplayTitle joins the rich-text title fragments.
func (d Database) DisplayTitle() string {
	if len(d.Title) == 0 {
		return "Untitled"
	}

	parts := make([]string, 0, len(d.Title))
	for _, t := range d.Title {
		parts = append(parts, t.PlainText)
	}

	return strings.Join(parts, " ")
}

// ListDatabases fetches the databases shared with the integration and
// mirrors them by (user_id, database_id).
func (n *Notion) ListDatabases(ctx context.Context, userID, accessToken string) ([]Database, error) {
	var out struct {
		Results []Database `json:"results"`
	}

	u := n.baseURL + "/databases"
	if err := doJSON(ctx, n.client, models.ProviderNotion, http.MethodGet, u, accessToken, n.headers(), nil, &out); err != nil {
		return nil, err
	}

	for _, db := range out.Results {
		err := n.mirror.UpsertNotionDatabase(ctx, &models.NotionDatabase{
			UserID:     userID,
			DatabaseID: db.ID,
			Title:      db.DisplayTitle(),
		})
		if err != nil {
			return nil, err
		}
	}

	return out.Results, nil
}

// PageRequest is the payload for CreatePage.
type PageRequest struct {
	Parent     map[string]any `json:"parent"`
	Properties map[string]any `json:"properties"`
	Children   []any          `json:"children,omitempty"`
}

func (n *Notion) CreatePage(ctx context.Context, accessToken string, page *PageRequest) (map[string]any, error) {
	if page.Properties == nil {
		page.Properties = map[string]any{}
	}

	var out map[string]any

	u := n.baseURL + "/pages"
	if err := doJSON(ctx, n.client, models.ProviderNotion, http.MethodPost, u, accessToken, n.headers(), page, &out); err != nil {
		return nil, err
	}

	return out, nil
}

func (n *Notion) UpdatePage(ctx context.Context, accessToken, pageID string, properties map[string]any) (map[string]any, error) {
	if properties == nil {
		properties = map[string]any{}
	}

	body := map[string]any{"properties": properties}

	var out map[string]any

	u := n.baseURL + "/pages/" + url.PathEscape(pageID)
	if err := doJSON(ctx, n.client, models.ProviderNotion, http.MethodPatch, u, accessToken, n.headers(), body, &out); err != nil {
		return nil, err
	}

	return out, nil
}

// Search queries the workspace, most recently edited first.
func (n *Notion) Search(ctx context.Context, accessToken, query string) ([]map[string]any, error) {
	body := map[string]any{
		"query": query,
		"sort": map[string]any{
			"direction": "descending",
			"timestamp": "last_edited_time",
		},
	}

	var out struct {
		Results []map[string]any `json:"results"`
	}

	u := n.baseURL + "/search"
	if err := doJSON(ctx, n.client, models.ProviderNotion, http.MethodPost, u, accessToken, n.headers(), body, &out); err != nil {
		return nil, err
	}

	return out.Results, nil
}
