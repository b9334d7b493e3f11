package store

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when a record does not exist in the backend.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned on create when the backend enforces id
	// uniqueness and the id is taken.
	ErrAlreadyExists = errors.New("record already exists")
)

// Stats summarizes what the active backend currently holds.
type Stats struct {
	Driver        string `json:"driver"`
	Conversations int    `json:"conversations_count"`
	Messages      int    `json:"messages_count"`
	Memories      int    `json:"user_memories_count"`
	CustomRoles   int    `json:"custom_roles_count"`
}

// Driver is an interface for store driver.
// It contains all methods that a storage backend should implement.
// One concrete driver exists per backend (memory, file, sqlite, mongo);
// business logic never branches on backend identity.
type Driver interface {
	Ping(ctx context.Context) error
	Stats(ctx context.Context) (*Stats, error)
	Close() error

	// Conversation model related methods.
	CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error)
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	// AppendConversationMessage atomically appends one message and bumps
	// the conversation's updated timestamp.
	AppendConversationMessage(ctx context.Context, append *AppendMessage) error
	ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error)
	DeleteConversation(ctx context.Context, id string) (bool, error)
	CleanupConversations(ctx context.Context, beforeTs int64) (int, error)

	// UserMemory model related methods.
	GetUserMemory(ctx context.Context, userID, characterName string) (*UserMemory, error)
	UpsertUserMemory(ctx context.Context, upsert *UpsertUserMemory) (*UserMemory, error)
	ListUserMemories(ctx context.Context, find *FindUserMemory) ([]*UserMemory, error)

	// CustomRole model related methods.
	CreateCustomRole(ctx context.Context, create *CustomRole) (*CustomRole, error)
	GetCustomRole(ctx context.Context, id string) (*CustomRole, error)
	ListCustomRoles(ctx context.Context, find *FindCustomRole) ([]*CustomRole, error)
	UpdateCustomRole(ctx context.Context, update *UpdateCustomRole) (*CustomRole, error)
	DeleteCustomRole(ctx context.Context, id string) (bool, error)
}
