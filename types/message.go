// Package types provides core types used across the tripflow orchestration core.
// This package has ZERO dependencies on other tripflow packages to avoid circular imports.
package types

import (
	"time"

	"github.com/google/uuid"
)

// Role represents the role of a message participant.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is an inbound chat message. It is never mutated after creation.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a user message with a fresh ID and the current time.
func NewMessage(sessionID, userID, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		UserID:    userID,
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// ChatMessage is the {role, content} pair handed to the LLM adapter.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewChatMessage creates a chat message with the given role and content.
func NewChatMessage(role Role, content string) ChatMessage {
	return ChatMessage{Role: role, Content: content}
}
