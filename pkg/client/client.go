package client

import (
	"time"

	"medassist/pkg/logger"
)

// Client bundles the resource clients of the clinic backend. All of them
// share one transport.
type Client struct {
	DoctorClient      *DoctorClient
	AppointmentClient *AppointmentClient
	ChatClient        *ChatClient
}

func NewClient(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	httpClient := NewHttpClient(baseURL, timeout, log)
	return &Client{
		DoctorClient:      NewDoctorClient(httpClient),
		AppointmentClient: NewAppointmentClient(httpClient),
		ChatClient:        NewChatClient(httpClient),
	}
}
