package providers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/jarvisapp/jarvis-sync/models"
)

// Slack adapts the Slack Web API. Slack reports most failures as a
// 200 response with ok=false, so every call checks both.
type Slack struct {
	client  *http.Client
	baseURL string
	mirror  models.MirrorRepository
	logger  *zap.Logger
}

func NewSlack(mirror models.MirrorRepository, logger *zap.Logger) *Slack {
	return &Slack{
		client:  newHTTPClient(),
		baseURL: defaultSlackBaseURL,
		mirror:  mirror,
		logger:  logger,
	}
}

func (s *Slack) SetBaseURL(u string) { s.baseURL = u }

// Channel is a provider-native Slack conversation.
type Channel struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsPrivate  bool   `json:"is_private"`
	IsArchived bool   `json:"is_archived"`
}

type slackEnvelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (s *Slack) checkEnvelope(env slackEnvelope) error {
	if env.OK {
		return nil
	}

	return &models.ExternalAPIError{
		Provider:   models.ProviderSlack,
		StatusCode: http.StatusOK,
		Message:    env.Error,
	}
}

// ListChannels fetches the workspace's conversations and mirrors the
// non-archived ones by (user_id, workspace_id, channel_id).
func (s *Slack) ListChannels(ctx context.Context, userID, accessToken string) ([]Channel, error) {
	var out struct {
		slackEnvelope
		Channels []Channel `json:"channels"`
	}

	u := s.baseURL + "/conversations.list"
	if err := doJSON(ctx, s.client, models.ProviderSlack, http.MethodGet, u, accessToken, nil, nil, &out); err != nil {
		return nil, err
	}

	if err := s.checkEnvelope(out.slackEnvelope); err != nil {
		return nil, err
	}

	workspaceID := s.workspaceID(ctx, accessToken)

	for _, channel := range out.Channels {
		if channel.IsArchived {
			continue
		}

		err := s.mirror.UpsertSlackChannel(ctx, &models.SlackChannel{
			UserID:      userID,
			WorkspaceID: workspaceID,
			ChannelID:   channel.ID,
			ChannelName: channel.Name,
			IsPrivate:   channel.IsPrivate,
		})
		if err != nil {
			return nil, err
		}
	}

	return out.Channels, nil
}

func (s *Slack) workspaceID(ctx context.Context, accessToken string) string {
	var out struct {
		slackEnvelope
		Team struct {
			ID string `json:"id"`
		} `json:"team"`
	}

	u := s.baseURL + "/team.info"
	if err := doJSON(ctx, s.client, models.ProviderSlack, http.MethodGet, u, accessToken, nil, nil, &out); err != nil || !out.OK {
		s.logger.Debug("could not resolve workspace id", zap.Error(err))

		return "unknown"
	}

	return out.Team.ID
}

// MessageRequest is the payload for PostMessage.
type MessageRequest struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
	Blocks  any    `json:"blocks,omitempty"`
}

func (s *Slack) PostMessage(ctx context.Context, accessToken string, msg *MessageRequest) (map[string]any, error) {
	var out map[string]any

	u := s.baseURL + "/chat.postMessage"
	if err := doJSON(ctx, s.client, models.ProviderSlack, http.MethodPost, u, accessToken, nil, msg, &out); err != nil {
		return nil, err
	}

	if ok, _ := out["ok"].(bool); !ok {
		errMsg, _ := out["error"].(string)

		return nil, &models.ExternalAPIError{
			Provider:   models.ProviderSlack,
			StatusCode: http.StatusOK,
			Message:    errMsg,
		}
	}

	return out, nil
}

// ReminderRequest is the payload for CreateReminder. Time accepts
// Slack's formats: a unix timestamp or natural language.
type ReminderRequest struct {
	Text string `json:"text"`
	Time string `json:"time"`
	User string `json:"user,omitempty"`
}

func (s *Slack) CreateReminder(ctx context.Context, accessToken string, reminder *ReminderRequest) (map[string]any, error) {
	var out map[string]any

	u := s.baseURL + "/reminders.add"
	if err := doJSON(ctx, s.client, models.ProviderSlack, http.MethodPost, u, accessToken, nil, reminder, &out); err != nil {
		return nil, err
	}

	if ok, _ := out["ok"].(bool); !ok {
		errMsg, _ := out["error"].(string)

		return nil, &models.ExternalAPIError{
			Provider:   models.ProviderSlack,
			StatusCode: http.StatusOK,
			Message:    errMsg,
		}
	}

	return out, nil
}
