// Package file implements the JSON-file storage driver.
//
// Layout mirrors the original deployment: conversations.json holds a map of
// conversation id to conversation record, custom_roles.json a map of role id
// to custom role. memories.json holds the per-(user, character) memory
// records. Every mutation rewrites the affected document under a single
// mutex, which is what makes a per-key append atomic for this backend.
package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/ningoooo/rolechat/internal/profile"
	"github.com/ningoooo/rolechat/store"
)

// DB is the JSON-file storage driver.
type DB struct {
	mu sync.Mutex

	conversationsPath string
	rolesPath         string
	memoriesPath      string

	conversations map[string]*store.Conversation
	roles         map[string]*store.CustomRole
	memories      []*store.UserMemory
}

// NewDB opens the data directory and loads the existing documents.
func NewDB(profile *profile.Profile) (*DB, error) {
	if err := os.MkdirAll(profile.Data, 0o770); err != nil {
		return nil, errors.Wrapf(err, "unable to create data folder %s", profile.Data)
	}
	d := &DB{
		conversationsPath: filepath.Join(profile.Data, "conversations.json"),
		rolesPath:         filepath.Join(profile.Data, "custom_roles.json"),
		memoriesPath:      filepath.Join(profile.Data, "memories.json"),
		conversations:     make(map[string]*store.Conversation),
		roles:             make(map[string]*store.CustomRole),
	}
	if err := loadJSON(d.conversationsPath, &d.conversations); err != nil {
		return nil, err
	}
	if err := loadJSON(d.rolesPath, &d.roles); err != nil {
		return nil, err
	}
	if err := loadJSON(d.memoriesPath, &d.memories); err != nil {
		return nil, err
	}
	return d, nil
}

// loadJSON reads a document into v. A missing file is an empty document.
func loadJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "failed to read %s", path)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrapf(err, "failed to parse %s", path)
	}
	return nil
}

// saveJSON writes the document atomically via a temp file rename.
func saveJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", path)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o640); err != nil {
		return errors.Wrapf(err, "failed to write %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "failed to replace %s", path)
	}
	return nil
}

func (d *DB) Ping(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := os.Stat(filepath.Dir(d.conversationsPath))
	return errors.Wrap(err, "data directory unavailable")
}

func (*DB) Close() error { return nil }

func (d *DB) Stats(context.Context) (*store.Stats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	stats := &store.Stats{
		Driver:        "file",
		Conversations: len(d.conversations),
		Memories:      len(d.memories),
		CustomRoles:   len(d.roles),
	}
	for _, c := range d.conversations {
		stats.Messages += len(c.Messages)
	}
	return stats, nil
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
	if err := saveJSON(d.conversationsPath, d.conversations); err != nil {
		delete(d.conversations, create.ID)
		return nil, err
	}
	return copyConversation(create), nil
}

func (d *DB) GetConversation(_ context.Context, id string) (*store.Conversation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
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
	updated := copyConversation(c)
	updated.Messages = append(updated.Messages, store.Message{
		Role:      msg.Role,
		Content:   msg.Content,
		CreatedTs: now,
	})
	updated.UpdatedTs = now
	d.conversations[msg.ConversationID] = updated
	if err := saveJSON(d.conversationsPath, d.conversations); err != nil {
		d.conversations[msg.ConversationID] = c
		return err
	}
	return nil
}

func (d *DB) ListConversations(_ context.Context, find *store.FindConversation) ([]*store.Conversation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

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
	c, ok := d.conversations[id]
	if !ok {
		return false, nil
	}
	delete(d.conversations, id)
	if err := saveJSON(d.conversationsPath, d.conversations); err != nil {
		d.conversations[id] = c
		return false, err
	}
	return true, nil
}

func (d *DB) CleanupConversations(_ context.Context, beforeTs int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dropped := make(map[string]*store.Conversation)
	for id, c := range d.conversations {
		if c.UpdatedTs < beforeTs {
			dropped[id] = c
			delete(d.conversations, id)
		}
	}
	if len(dropped) == 0 {
		return 0, nil
	}
	if err := saveJSON(d.conversationsPath, d.conversations); err != nil {
		for id, c := range dropped {
			d.conversations[id] = c
		}
		return 0, err
	}
	return len(dropped), nil
}

func (d *DB) findMemory(userID, characterName string) *store.UserMemory {
	for _, m := range d.memories {
		if m.UserID == userID && m.CharacterName == characterName {
			return m
		}
	}
	return nil
}

func (d *DB) GetUserMemory(_ context.Context, userID, characterName string) (*store.UserMemory, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m := d.findMemory(userID, characterName)
	if m == nil {
		return nil, store.ErrNotFound
	}
	return copyMemory(m), nil
}

func (d *DB) UpsertUserMemory(_ context.Context, upsert *store.UpsertUserMemory) (*store.UserMemory, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now().Unix()
	idx := -1
	for i, m := range d.memories {
		if m.UserID == upsert.UserID && m.CharacterName == upsert.CharacterName {
			idx = i
			break
		}
	}

	var prev, m *store.UserMemory
	if idx < 0 {
		m = &store.UserMemory{
			UserID:        upsert.UserID,
			CharacterName: upsert.CharacterName,
			CreatedTs:     now,
		}
	} else {
		prev = d.memories[idx]
		m = copyMemory(prev)
	}

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

	if idx < 0 {
		d.memories = append(d.memories, m)
	} else {
		d.memories[idx] = m
	}
	if err := saveJSON(d.memoriesPath, d.memories); err != nil {
		if idx < 0 {
			d.memories = d.memories[:len(d.memories)-1]
		} else {
			d.memories[idx] = prev
		}
		return nil, err
	}
	return copyMemory(m), nil
}

func (d *DB) ListUserMemories(_ context.Context, find *store.FindUserMemory) ([]*store.UserMemory, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
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
	if err := saveJSON(d.rolesPath, d.roles); err != nil {
		delete(d.roles, create.ID)
		return nil, err
	}
	return copyRole(create), nil
}

func (d *DB) GetCustomRole(_ context.Context, id string) (*store.CustomRole, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.roles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyRole(r), nil
}

func (d *DB) ListCustomRoles(_ context.Context, find *store.FindCustomRole) ([]*store.CustomRole, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
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
	prev, ok := d.roles[update.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	r := copyRole(prev)
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
	r.UpdatedTs = time.Now().Unix()
	d.roles[update.ID] = r
	if err := saveJSON(d.rolesPath, d.roles); err != nil {
		d.roles[update.ID] = prev
		return nil, err
	}
	return copyRole(r), nil
}

func (d *DB) DeleteCustomRole(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.roles[id]
	if !ok {
		return false, nil
	}
	delete(d.roles, id)
	if err := saveJSON(d.rolesPath, d.roles); err != nil {
		d.roles[id] = r
		return false, err
	}
	return true, nil
}
