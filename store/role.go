package store

// CustomRole is a user-created persona. Unlike catalog characters, custom
// roles are mutable post-creation.
type CustomRole struct {
	ID           string   `json:"id" bson:"role_id"`
	Name         string   `json:"name" bson:"name"`
	Description  string   `json:"description" bson:"description"`
	Personality  string   `json:"personality" bson:"personality"`
	Category     string   `json:"category" bson:"category"`
	Tags         []string `json:"tags" bson:"tags"`
	Image        string   `json:"image,omitempty" bson:"image,omitempty"`
	SystemPrompt string   `json:"system_prompt,omitempty" bson:"system_prompt,omitempty"`
	IsCustom     bool     `json:"is_custom" bson:"is_custom"`
	CreatedTs    int64    `json:"created_ts" bson:"created_ts"`
	UpdatedTs    int64    `json:"updated_ts" bson:"updated_ts"`
}

// UpdateCustomRole carries a partial update; nil fields keep prior values.
// The id itself is never updatable.
type UpdateCustomRole struct {
	ID           string
	Name         *string
	Description  *string
	Personality  *string
	Category     *string
	Tags         *[]string
	Image        *string
	SystemPrompt *string
}

// FindCustomRole filters custom role listings.
type FindCustomRole struct {
	ID      *string
	Keyword *string
}
