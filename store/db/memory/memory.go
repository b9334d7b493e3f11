// Package memory implements the volatile in-process storage driver.
//
// All records live in process-local maps and are lost on exit. The driver
// serializes every read-modify-write under one mutex so a per-key append is
// atomic even with concurrent requests on the same conversation id.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ningoooo/rolechat/store"
)

// DB is the in-memory storage driver.
type DB struct {
	mu            sync.RWMutex
	conversations map[string]*store.Conversation
	memories      map[string]*store.UserMemory // keyed by userID + "\x00" + characterName
	roles         map[string]*store.CustomRole
}

// NewDB creates a new in-memory driver.
func NewDB() *DB {
	return &DB{
		conversations: make(map[string]*store.Conversation),
		memories:      make(map[string]*store.UserMemory),
		roles:         make(map[string]*store.CustomRole),
	}
}

func (*DB) Ping(context.Context) error { return nil }

func (*DB) Close() error { return nil }

func (d *DB) Stats(context.Context) (*store.Stats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	stats := &store.Stats{
		Driver:        "memory",
		Conversations: len(d.conversations),
		Memories:      len(d.memories),
		CustomRoles:   len(d.roles),
	}
	for _, c := range d.conversations {
		stats.Messages += len(c.Messages)
	}
	return stats, nil
}

func memoryKey(userID, characterName string) string {
	return userID + "\x00" + characterName
}

func copyConversation(c *store.Conversation) *store.Conversation {
	out := *c
	out.Messages = make([]store.Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return &out
}

func copyMemory(m *store.UserMemory) *store.UserMemory {
	out := *m
	out.Likes = append([]string(nil), m.Likes...)
	out.Dislikes = append([]string(nil), m.Dislikes...)
	if m.Extra != nil {
		out.Extra = make(map[string]string, len(m.Extra))
		for k, v := range m.Extra {
			out.Extra[k] = v
		}
	}
	return &out
}

func copyRole(r *store.CustomRole) *store.CustomRole {
	out := *r
	out.Tags = append([]string(nil), r.Tags...)
	return &out
}

func (d *DB) CreateConversation(_ context.Context, create *store.Conversation) (*store.Conversation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.conversations[create.ID]; ok {
		return nil, store.ErrAlreadyExists
	}
	d.conversations[create.ID] = copyConversation(create)
	return copyConversation(create), nil
}

func (d *DB) GetConversation(_ context.Context, id string) (*store.Conversation, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.conversations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyConversation(c), nil
}

func (d *DB) AppendConversationMessage(_ context.Context, msg *store.AppendMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.conversations[msg.ConversationID]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now().Unix()
	c.Messages = append(c.Messages, store.Message{
		Role:      msg.Role,
		Content:   msg.Content,
		CreatedTs: now,
	})
	c.UpdatedTs = now
	return nil
}

func (d *DB) ListConversations(_ context.Context, find *store.FindConversation) ([]*store.Conversation, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*store.Conversation
	for _, c := range d.conversations {
		if v := find.ID; v != nil && c.ID != *v {
			continue
		}
		if v := find.UserID; v != nil && c.UserID != *v {
			continue
		}
		if v := find.CharacterName; v != nil && c.CharacterName != *v {
			continue
		}
		out = append(out, copyConversation(c))
	}

	// Most-recent-first by last message time, falling back to creation time.
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivityTs() > out[j].LastActivityTs()
	})

	if find.Limit != nil && *find.Limit < len(out) {
		out = out[:*find.Limit]
	}
	return out, nil
}

func (d *DB) DeleteConversation(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.conversations[id]; !ok {
		return false, nil
	}
	delete(d.conversations, id)
	return true, nil
}

func (d *DB) CleanupConversations(_ context.Context, beforeTs int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	removed := 0
	for id, c := range d.conversations {
		if c.UpdatedTs < beforeTs {
			delete(d.conversations, id)
			removed++
		}
	}
	return removed, nil
}

func (d *DB) GetUserMemory(_ context.Context, userID, characterName string) (*store.UserMemory, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.memories[memoryKey(userID, characterName)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyMemory(m), nil
}

func (d *DB) UpsertUserMemory(_ context.Context, upsert *store.UpsertUserMemory) (*store.UserMemory, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now().Unix()
	key := memoryKey(upsert.UserID, upsert.CharacterName)
	m, ok := d.memories[key]
	if !ok {
		m = &store.UserMemory{
			UserID:        upsert.UserID,
			CharacterName: upsert.CharacterName,
			CreatedTs:     now,
		}
		d.memories[key] = m
	}
	applyMemoryUpsert(m, upsert, now)
	return copyMemory(m), nil
}

// applyMemoryUpsert merges an upsert into an existing record: counters add,
// preference lists append, Extra keys overwrite.
func applyMemoryUpsert(m *store.UserMemory, upsert *store.UpsertUserMemory, now int64) {
	m.TotalMessages += upsert.IncTotalMessages
	if upsert.LastConversationTs != 0 {
		m.LastConversationTs = upsert.LastConversationTs
	}
	m.Likes = append(m.Likes, upsert.AddLikes...)
	m.Dislikes = append(m.Dislikes, upsert.AddDislikes...)
	if len(upsert.SetExtra) > 0 {
		if m.Extra == nil {
			m.Extra = make(map[string]string, len(upsert.SetExtra))
		}
		for k, v := range upsert.SetExtra {
			m.Extra[k] = v
		}
	}
	m.UpdatedTs = now
}

func (d *DB) ListUserMemories(_ context.Context, find *store.FindUserMemory) ([]*store.UserMemory, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []*store.UserMemory
	for _, m := range d.memories {
		if m.UserID != find.UserID {
			continue
		}
		if v := find.CharacterName; v != nil && m.CharacterName != *v {
			continue
		}
		out = append(out, copyMemory(m))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CharacterName < out[j].CharacterName
	})
	return out, nil
}

func (d *DB) CreateCustomRole(_ context.Context, create *store.CustomRole) (*store.CustomRole, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.roles[create.ID]; ok {
		return nil, store.ErrAlreadyExists
	}
	d.roles[create.ID] = copyRole(create)
	return copyRole(create), nil
}

func (d *DB) GetCustomRole(_ context.Context, id string) (*store.CustomRole, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.roles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyRole(r), nil
}

func (d *DB) ListCustomRoles(_ context.Context, find *store.FindCustomRole) ([]*store.CustomRole, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []*store.CustomRole
	for _, r := range d.roles {
		if v := find.ID; v != nil && r.ID != *v {
			continue
		}
		if v := find.Keyword; v != nil && !roleMatches(r, *v) {
			continue
		}
		out = append(out, copyRole(r))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedTs > out[j].CreatedTs
	})
	return out, nil
}

func roleMatches(r *store.CustomRole, keyword string) bool {
	keyword = strings.ToLower(keyword)
	return strings.Contains(strings.ToLower(r.Name), keyword) ||
		strings.Contains(strings.ToLower(r.Description), keyword) ||
		strings.Contains(strings.ToLower(r.Personality), keyword)
}

func (d *DB) UpdateCustomRole(_ context.Context, update *store.UpdateCustomRole) (*store.CustomRole, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.roles[update.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	applyRoleUpdate(r, update, time.Now().Unix())
	return copyRole(r), nil
}

func applyRoleUpdate(r *store.CustomRole, update *store.UpdateCustomRole, now int64) {
	if v := update.Name; v != nil {
		r.Name = *v
	}
	if v := update.Description; v != nil {
		r.Description = *v
	}
	if v := update.Personality; v != nil {
		r.Personality = *v
	}
	if v := update.Category; v != nil {
		r.Category = *v
	}
	if v := update.Tags; v != nil {
		r.Tags = append([]string(nil), (*v)...)
	}
	if v := update.Image; v != nil {
		r.Image = *v
	}
	if v := update.SystemPrompt; v != nil {
		r.SystemPrompt = *v
	}
	r.UpdatedTs = now
}

func (d *DB) DeleteCustomRole(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.roles[id]; !ok {
		return false, nil
	}
	delete(d.roles, id)
	return true, nil
}
