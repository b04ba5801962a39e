package models

// ChatMessageRequest is the body accepted by POST /chat/message. ImageURL
// refers to an image previously returned by POST /chat/image.
type ChatMessageRequest struct {
	Message  string `json:"message" binding:"max=4000"`
	ImageURL string `json:"image_url"`
}
