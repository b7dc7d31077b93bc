package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"docchat/internal/auth"
	"docchat/internal/models"
	"docchat/internal/services"
	"docchat/pkg/httputil"
)

// maxUploadBytes caps the multipart form held in memory per upload.
const maxUploadBytes = 32 << 20

// ChatService defines the interface expected from the chat service.
type ChatService interface {
	StartChat(ctx context.Context, userID, fileName string, contents io.Reader) (string, error)
	Ask(ctx context.Context, userID, chatID, question string) (string, error)
	ChatIDs(ctx context.Context, userID string) ([]string, error)
	History(ctx context.Context, userID, chatID string) ([]models.ChatEntry, error)
}

type ChatHandlers struct {
	chatService ChatService
}

func NewChatHandlers(chatSvc ChatService) *ChatHandlers {
	return &ChatHandlers{
		chatService: chatSvc,
	}
}

// HandleUploadFile handles POST /UploadFile: multipart file field "file",
// responds {msg, chat_id} once a chat is initialized for the document.
func (h *ChatHandlers) HandleUploadFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Invalid authentication token")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	chatID, err := h.chatService.StartChat(r.Context(), userID.String(), header.Filename, file)
	if err != nil {
		log.Printf("Upload handler failed for user %s: %v", userID, err)
		if errors.Is(err, services.ErrEmptyUpload) {
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := models.UploadResponse{
		Msg:    "File '" + header.Filename + "' uploaded and chatbot initialized.",
		ChatID: chatID,
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleChat handles POST /chat: answers a question within an existing chat.
func (h *ChatHandlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Invalid authentication token")
		return
	}

	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if req.ChatID == "" || req.Question == "" {
		httputil.RespondError(w, http.StatusBadRequest, "chat_id and question are required parameters.")
		return
	}

	answer, err := h.chatService.Ask(r.Context(), userID.String(), req.ChatID, req.Question)
	if err != nil {
		log.Printf("Chat handler failed for user %s chat %s: %v", userID, req.ChatID, err)
		if errors.Is(err, services.ErrChatNotFound) {
			httputil.RespondError(w, http.StatusNotFound, err.Error())
			return
		}
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.AskResponse{Answer: answer})
}

// HandleGetChatIDs handles POST /get_chat_ids.
func (h *ChatHandlers) HandleGetChatIDs(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Invalid authentication token")
		return
	}

	ids, err := h.chatService.ChatIDs(r.Context(), userID.String())
	if err != nil {
		log.Printf("ChatIDs handler failed for user %s: %v", userID, err)
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ids == nil {
		ids = []string{}
	}
	httputil.RespondJSON(w, http.StatusOK, models.ChatIDsResponse{ChatIDs: ids})
}

// HandleGetChatByID handles POST /get_chat_by_id?chat_id=…
func (h *ChatHandlers) HandleGetChatByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Invalid authentication token")
		return
	}

	chatID := r.URL.Query().Get("chat_id")
	if chatID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "chat_id is a required parameter.")
		return
	}

	entries, err := h.chatService.History(r.Context(), userID.String(), chatID)
	if err != nil {
		log.Printf("History handler failed for user %s chat %s: %v", userID, chatID, err)
		if errors.Is(err, services.ErrChatNotFound) {
			httputil.RespondError(w, http.StatusNotFound, err.Error())
			return
		}
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.ChatHistoryResponse{Messages: entries})
}
