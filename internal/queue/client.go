package queue

import "context"

//go:generate mockgen -source=client.go -destination=client_mock.go -package=queue

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}
