package store

// UserMemory holds derived, cumulative facts about a (user, character) pair.
// It personalizes future prompts and is written best-effort after each turn.
type UserMemory struct {
	UserID             string            `json:"user_id" bson:"user_id"`
	CharacterName      string            `json:"character_name" bson:"character_name"`
	TotalMessages      int               `json:"total_messages" bson:"total_messages"`
	LastConversationTs int64             `json:"last_conversation_ts" bson:"last_conversation_ts"`
	Likes              []string          `json:"likes" bson:"likes"`
	Dislikes           []string          `json:"dislikes" bson:"dislikes"`
	Extra              map[string]string `json:"extra,omitempty" bson:"extra,omitempty"`
	CreatedTs          int64             `json:"created_ts" bson:"created_ts"`
	UpdatedTs          int64             `json:"updated_ts" bson:"updated_ts"`
}

// IsEmpty reports whether the memory carries nothing worth injecting into a
// prompt.
func (m *UserMemory) IsEmpty() bool {
	return m == nil || (m.TotalMessages == 0 && len(m.Likes) == 0 && len(m.Dislikes) == 0)
}

// UpsertUserMemory merges into an existing memory record, creating it when
// absent. Counters add, preference lists append (repeated statements may
// produce repeated entries), Extra keys overwrite.
type UpsertUserMemory struct {
	UserID             string
	CharacterName      string
	IncTotalMessages   int
	LastConversationTs int64
	AddLikes           []string
	AddDislikes        []string
	SetExtra           map[string]string
}

// FindUserMemory filters memory lookups. CharacterName nil means all
// memories for the user.
type FindUserMemory struct {
	UserID        string
	CharacterName *string
}
