package models

// --- Request Structs ---

// SignupRequest defines the expected body for the signup endpoint.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest defines the expected body for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AskRequest defines the body for submitting a question to an existing chat.
type AskRequest struct {
	ChatID   string `json:"chat_id"`
	Question string `json:"question"`
}

// --- Response Structs ---

// AuthResponse defines the response body for successful authentication.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
}

// UploadResponse is returned by the file-upload endpoint once a chat has
// been initialized for the uploaded document.
type UploadResponse struct {
	Msg    string `json:"msg"`
	ChatID string `json:"chat_id"`
}

// AskResponse carries the generated answer for a submitted question.
type AskResponse struct {
	Answer string `json:"answer"`
}

// ChatIDsResponse lists the caller's chat identifiers.
type ChatIDsResponse struct {
	ChatIDs []string `json:"chat_ids"`
}

// ChatHistoryResponse carries the full history of one chat.
type ChatHistoryResponse struct {
	Messages []ChatEntry `json:"messages"`
}

// PublicResponse is the unauthenticated health-check body.
type PublicResponse struct {
	Msg string `json:"msg"`
}

// ErrorResponse defines the standard structure for API errors. The detail
// string is what gateway clients surface to the user.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
