package store

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/ningoooo/rolechat/internal/profile"
)

// Store provides access to all persisted objects through the active driver.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

// Volatile reports whether the active backend loses data on process exit.
// The memory driver is explicitly volatile; file, sqlite and mongo survive
// a restart.
func (s *Store) Volatile() bool {
	return s.profile.Driver == "memory"
}

// DriverName returns the active backend's name.
func (s *Store) DriverName() string {
	return s.profile.Driver
}

func (s *Store) Ping(ctx context.Context) error {
	return s.driver.Ping(ctx)
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	return s.driver.Stats(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// CreateConversation creates a conversation with the character binding
// snapshotted from the supplied values.
func (s *Store) CreateConversation(ctx context.Context, id, userID, characterName, characterDescription string) (*Conversation, error) {
	if id == "" {
		return nil, errors.New("conversation id is required")
	}
	now := time.Now().Unix()
	create := &Conversation{
		ID:                   id,
		UserID:               userID,
		CharacterName:        characterName,
		CharacterDescription: characterDescription,
		Messages:             []Message{},
		CreatedTs:            now,
		UpdatedTs:            now,
	}
	return s.driver.CreateConversation(ctx, create)
}

func (s *Store) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	return s.driver.GetConversation(ctx, id)
}

// AppendMessage appends one message to the conversation identified by id.
// Returns ErrNotFound when the conversation does not exist.
func (s *Store) AppendMessage(ctx context.Context, id string, role MessageRole, content string) error {
	if role != MessageRoleUser && role != MessageRoleAssistant {
		return errors.Errorf("invalid message role %q", role)
	}
	return s.driver.AppendConversationMessage(ctx, &AppendMessage{
		ConversationID: id,
		Role:           role,
		Content:        content,
	})
}

// ListConversations returns conversations most-recent-first. Recency is the
// last message time, falling back to the creation time for empty
// conversations.
func (s *Store) ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error) {
	return s.driver.ListConversations(ctx, find)
}

// DeleteConversation removes a conversation, reporting whether one existed.
func (s *Store) DeleteConversation(ctx context.Context, id string) (bool, error) {
	return s.driver.DeleteConversation(ctx, id)
}

// CleanupConversations removes conversations whose last activity is older
// than the retention window. Only ever triggered by an explicit call.
func (s *Store) CleanupConversations(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, errors.New("retention days must be positive")
	}
	beforeTs := time.Now().AddDate(0, 0, -retentionDays).Unix()
	return s.driver.CleanupConversations(ctx, beforeTs)
}

func (s *Store) GetUserMemory(ctx context.Context, userID, characterName string) (*UserMemory, error) {
	return s.driver.GetUserMemory(ctx, userID, characterName)
}

func (s *Store) UpsertUserMemory(ctx context.Context, upsert *UpsertUserMemory) (*UserMemory, error) {
	if upsert.UserID == "" || upsert.CharacterName == "" {
		return nil, errors.New("user id and character name are required")
	}
	return s.driver.UpsertUserMemory(ctx, upsert)
}

func (s *Store) ListUserMemories(ctx context.Context, userID string) ([]*UserMemory, error) {
	return s.driver.ListUserMemories(ctx, &FindUserMemory{UserID: userID})
}

func (s *Store) CreateCustomRole(ctx context.Context, create *CustomRole) (*CustomRole, error) {
	if create.Name == "" {
		return nil, errors.New("role name is required")
	}
	now := time.Now().Unix()
	create.IsCustom = true
	create.CreatedTs = now
	create.UpdatedTs = now
	return s.driver.CreateCustomRole(ctx, create)
}

func (s *Store) GetCustomRole(ctx context.Context, id string) (*CustomRole, error) {
	return s.driver.GetCustomRole(ctx, id)
}

func (s *Store) ListCustomRoles(ctx context.Context, find *FindCustomRole) ([]*CustomRole, error) {
	return s.driver.ListCustomRoles(ctx, find)
}

func (s *Store) UpdateCustomRole(ctx context.Context, update *UpdateCustomRole) (*CustomRole, error) {
	return s.driver.UpdateCustomRole(ctx, update)
}

func (s *Store) DeleteCustomRole(ctx context.Context, id string) (bool, error) {
	return s.driver.DeleteCustomRole(ctx, id)
}
