package models

// EventRequest is the chat gateway webhook payload for one incoming message.
// Exactly one of UserID or GroupID identifies the reply target: GroupID when
// MessageType is "group", UserID otherwise.
type EventRequest struct {
	PostType    string `json:"post_type"`
	MessageType string `json:"message_type" binding:"required"`
	UserID      int64  `json:"user_id"`
	GroupID     int64  `json:"group_id"`
	Message     string `json:"message" binding:"required"`
}
