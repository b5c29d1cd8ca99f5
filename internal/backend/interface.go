package backend

import (
	"context"

	"fluxo/internal/amqp"
	"fluxo/internal/store"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// BackendResult contains the store, the optional broker and a cleanup
// function closing both.
type BackendResult struct {
	Store store.Store
	// Broker is nil when AMQP is not configured.
	Broker  *amqp.Client
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string

	// Memory backend seed directory
	DataDirectory string

	// Optional change-event broker
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	// RequireBroker turns a broker connection failure into an error
	// instead of a warning.
	RequireBroker bool
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
