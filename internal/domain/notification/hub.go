package notification

import (
	"context"

	"github.com/google/uuid"
)

// SSEHub defines the interface for managing SSE connections
type SSEHub interface {
	Publisher

	// Client management
	Register(client *SSEClient)
	Unregister(clientID string)
	GetClient(clientID string) *SSEClient
	GetClientCount() int
	SessionClientCount(session uuid.UUID) int

	// Lifecycle
	Start(ctx context.Context)
	Stop()
}
