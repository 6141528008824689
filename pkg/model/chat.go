package model

import (
	"encoding/json"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type ChatReply struct {
	Response       string          `json:"response"`
	SessionID      string          `json:"session_id"`
	FunctionCalled string          `json:"function_called,omitempty"`
	FunctionResult json.RawMessage `json:"function_result,omitempty"`
}

// ChatMessage is one transcript entry held by a chat session.
type ChatMessage struct {
	ID             string          `json:"id" bson:"id"`
	Content        string          `json:"content" bson:"content"`
	Role           string          `json:"role" bson:"role"`
	Timestamp      time.Time       `json:"timestamp" bson:"timestamp"`
	SessionID      string          `json:"session_id,omitempty" bson:"session_id,omitempty"`
	FunctionCalled string          `json:"function_called,omitempty" bson:"function_called,omitempty"`
	FunctionResult json.RawMessage `json:"function_result,omitempty" bson:"function_result,omitempty"`
}
