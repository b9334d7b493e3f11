package store

// MessageRole is the author of a conversation message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message is one element of a conversation's message list.
// Messages are append-only and strictly chronologically ordered.
type Message struct {
	Role      MessageRole `json:"role" bson:"role"`
	Content   string      `json:"content" bson:"content"`
	CreatedTs int64       `json:"created_ts" bson:"created_ts"`
}

// Conversation is one ongoing exchange between a user and a bound character.
// The character binding is snapshotted at creation and never re-resolved.
type Conversation struct {
	ID                   string    `json:"id" bson:"conversation_id"`
	UserID               string    `json:"user_id" bson:"user_id"`
	CharacterName        string    `json:"character_name" bson:"character_name"`
	CharacterDescription string    `json:"character_description" bson:"character_description"`
	Messages             []Message `json:"messages" bson:"messages"`
	CreatedTs            int64     `json:"created_ts" bson:"created_ts"`
	UpdatedTs            int64     `json:"updated_ts" bson:"updated_ts"`
}

// LastActivityTs returns the timestamp of the most recent message, falling
// back to the creation time when the conversation has no messages yet.
func (c *Conversation) LastActivityTs() int64 {
	if n := len(c.Messages); n > 0 {
		return c.Messages[n-1].CreatedTs
	}
	return c.CreatedTs
}

// FindConversation filters conversation listings.
type FindConversation struct {
	ID            *string
	UserID        *string
	CharacterName *string
	Limit         *int
}

// AppendMessage describes one message append to an existing conversation.
type AppendMessage struct {
	ConversationID string
	Role           MessageRole
	Content        string
}
