package client

import (
	"context"
	"fmt"
	"strings"

	apperrors "medassist/pkg/errors"
	"medassist/pkg/model"
)

type ChatClient struct {
	httpClient *HttpClient
}

func NewChatClient(httpClient *HttpClient) *ChatClient {
	return &ChatClient{httpClient: httpClient}
}

// Send posts one chat turn. An empty sessionID asks the backend to open a new
// conversation; the reply carries the id to reuse.
func (c *ChatClient) Send(ctx context.Context, message, sessionID string) (*model.ChatReply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperrors.Validation("message cannot be empty", nil)
	}

	var reply model.ChatReply
	body := model.ChatRequest{Message: message, SessionID: sessionID}
	if err := c.httpClient.postJSON(ctx, "/chat", body, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// CheckDoctorAvailability asks the assistant whether one doctor is free.
// Availability lives behind the chat endpoint's function calling.
func (c *ChatClient) CheckDoctorAvailability(ctx context.Context, doctorID int64, date, slot string) (*model.ChatReply, error) {
	return c.Send(ctx, fmt.Sprintf("Check availability for doctor ID %d on %s at %s", doctorID, date, slot), "")
}

func (c *ChatClient) AvailableDoctors(ctx context.Context, date, slot string) (*model.ChatReply, error) {
	return c.Send(ctx, fmt.Sprintf("Get available doctors on %s at %s", date, slot), "")
}
