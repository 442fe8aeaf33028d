package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"tindahan/backend/internal/assistant"
	"tindahan/backend/internal/domain"
	"tindahan/backend/internal/service"
)

// handleChat always answers 200 so a conversation is never interrupted by a
// transport error; failures come back with the ERROR action.
func (a *API) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.chatLimiter.Allow(chatKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many chat requests"))
		return
	}

	var req domain.ChatRequest
	if err := a.decodeValid(r, &req); err != nil {
		writeJSON(w, http.StatusOK, domain.ChatResponse{
			Message: "Sorry, hindi ko nabasa ang message. " + err.Error(),
			Action:  assistant.ActionError,
		})
		return
	}

	writeJSON(w, http.StatusOK, a.assistant.Chat(r.Context(), req))
}

func chatKey(r *http.Request) string {
	if actor, ok := service.ActorFromContext(r.Context()); ok {
		return "user:" + actor.Username
	}
	return "ip:" + clientKey(r)
}

// handleCommand dispatches a structured intent without going through the model.
func (a *API) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var cmd domain.Command
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	decoder.UseNumber()
	if err := decoder.Decode(&cmd); err != nil {
		writeServiceError(w, &badRequestError{err})
		return
	}
	if err := a.validateRequest(&cmd); err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := a.assistant.Dispatch(r.Context(), cmd)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"action": cmd.Action,
		"data":   result,
	})
}

func (a *API) handleAssistantStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, a.assistant.Status(r.Context()))
}

func (a *API) handleAssistantHelp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, a.assistant.Help())
}
