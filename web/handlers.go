package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/jarvisapp/jarvis-sync/models"
	"github.com/jarvisapp/jarvis-sync/pkg/encryption"
	"github.com/jarvisapp/jarvis-sync/queue"
	"github.com/jarvisapp/jarvis-sync/syncer"
)

type handler struct {
	tasks        *queue.Service
	taskStore    models.TaskRepository
	processor    *queue.Processor
	syncer       *syncer.Syncer
	integrations models.IntegrationRepository
	codec        *encryption.Codec
	oauth        map[models.Provider]*oauth2.Config
	logger       *zap.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	var vErr *models.ValidationError

	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": vErr.Error()})
	case errors.Is(err, models.ErrIntegrationMissing):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "integration not connected"})
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) addTask(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)

		return
	}

	var req queue.AddTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})

		return
	}

	// The acting user comes from auth, never from the body.
	req.UserID = userID

	task, err := h.tasks.AddTask(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusCreated, task)
}

func (h *handler) getTask(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)

		return
	}

	task, err := h.taskStore.GetTask(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)

		return
	}

	if task.UserID != userID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})

		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (h *handler) processQueue(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)

		return
	}

	result, err := h.processor.ProcessPending(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *handler) syncAll(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)

		return
	}

	results, err := h.syncer.SyncAll(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// integrationStatus is the redacted view of an integration row. Tokens
// never leave the server.
type integrationStatus struct {
	Provider     models.Provider `json:"provider"`
	Connected    bool            `json:"connected"`
	LastSyncedAt *time.Time      `json:"last_synced_at,omitempty"`
}

func (h *handler) listIntegrations(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)

		return
	}

	rows, err := h.integrations.List(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)

		return
	}

	connected := make(map[models.Provider]*models.UserIntegration, len(rows))
	for i := range rows {
		connected[rows[i].Provider] = &rows[i]
	}

	statuses := make([]integrationStatus, 0, len(models.Providers()))

	for _, provider := range models.Providers() {
		status := integrationStatus{Provider: provider}

		if row, ok := connected[provider]; ok {
			status.Connected = true
			status.LastSyncedAt = row.LastSyncedAt
		}

		statuses = append(statuses, status)
	}

	writeJSON(w, http.StatusOK, map[string]any{"integrations": statuses})
}

func (h *handler) deleteIntegration(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserID(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)

		return
	}

	provider := models.Provider(mux.Vars(r)["provider"])
	if !provider.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown provider"})

		return
	}

	if err := h.integrations.Delete(r.Context(), userID, provider); err != nil {
		h.writeError(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// connectIntegration starts the OAuth dance. The state token lives in a
// short-lived cookie so the callback can reject forged requests.
func (h *handler) connectIntegration(w http.ResponseWriter, r *http.Request) {
	provider := models.Provider(mux.Vars(r)["provider"])

	cfg, ok := h.oauth[provider]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "oauth is not configured for " + string(provider)})

		return
	}

	state := uuid.New().String()

	isSecure := r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300,
	})

	// AccessTypeOffline is required to get a refresh token.
	url := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (h *handler) oauthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := GetUserID(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)

		return
	}

	provider := models.Provider(mux.Vars(r)["provider"])

	cfg, ok := h.oauth[provider]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "oauth is not configured for " + string(provider)})

		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil {
		http.Error(w, "State cookie not found", http.StatusBadRequest)

		return
	}

	isSecure := r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})

	if r.URL.Query().Get("state") != stateCookie.Value {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)

		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Code not found", http.StatusBadRequest)

		return
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		http.Error(w, "Failed to exchange token: "+err.Error(), http.StatusInternalServerError)

		return
	}

	encryptedAccess, err := h.codec.Encrypt(token.AccessToken)
	if err != nil {
		h.writeError(w, err)

		return
	}

	integration := &models.UserIntegration{
		UserID:      userID,
		Provider:    provider,
		AccessToken: []byte(encryptedAccess),
	}

	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		integration.TokenExpiresAt = &expiry
	}

	if token.RefreshToken != "" {
		encryptedRefresh, err := h.codec.Encrypt(token.RefreshToken)
		if err != nil {
			h.writeError(w, err)

			return
		}

		integration.RefreshToken = []byte(encryptedRefresh)
	}

	if err := h.integrations.Save(ctx, integration); err != nil {
		h.writeError(w, err)

		return
	}

	h.logger.Info("integration connected",
		zap.String("user_id", userID),
		zap.String("provider", string(provider)))

	writeJSON(w, http.StatusOK, map[string]any{"connected": true, "provider": provider})
}
