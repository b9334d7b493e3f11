// Package memory derives durable user preferences from chat turns. The
// extraction runs after a turn completes and never blocks or fails the
// chat response.
package memory

import (
	"context"
	"strings"

	"github.com/ningoooo/rolechat/store"
)

// Extraction is the set of preference statements found in one message.
type Extraction struct {
	Likes    []string
	Dislikes []string
}

// IsEmpty reports whether the extraction found nothing worth persisting.
func (e Extraction) IsEmpty() bool {
	return len(e.Likes) == 0 && len(e.Dislikes) == 0
}

// ToUpsert converts the extraction into a store upsert for the given
// (user, character) pair.
func (e Extraction) ToUpsert(userID, characterName string) store.UpsertUserMemory {
	return store.UpsertUserMemory{
		UserID:        userID,
		CharacterName: characterName,
		AddLikes:      e.Likes,
		AddDislikes:   e.Dislikes,
	}
}

// Extractor turns a raw user message into preference statements.
// Implementations may consult external models; the keyword extractor
// works purely on the message text.
type Extractor interface {
	Extract(ctx context.Context, message string) (Extraction, error)
}

// Dislike markers are matched and consumed first so that "我不喜欢" is
// never misread as the "我喜欢" like marker.
var (
	dislikeMarkers = []string{"我不喜欢", "我讨厌", "我不爱", "i don't like", "i dislike", "i hate"}
	likeMarkers    = []string{"我喜欢", "我爱", "我最爱", "i like", "i love"}
)

// terminators end the captured phrase. Everything between the marker and
// the first terminator is the preference subject.
var terminators = []string{
	"，", "。", "！", "？", "；", "、",
	",", ".", "!", "?", ";", "\n",
	"但是", "不过", "因为", "所以", "而且", " but ", " because ",
}

// KeywordExtractor scans messages for first-person preference statements.
// It is intentionally naive: repeated statements yield repeated entries
// and deduplication is left to the reader of the record.
type KeywordExtractor struct {
	maxSubjectLen int
}

// NewKeywordExtractor creates the default keyword-based extractor.
func NewKeywordExtractor() *KeywordExtractor {
	return &KeywordExtractor{maxSubjectLen: 30}
}

// Extract finds all like/dislike statements in the message.
func (e *KeywordExtractor) Extract(_ context.Context, message string) (Extraction, error) {
	var result Extraction
	text := strings.ToLower(message)

	for _, marker := range dislikeMarkers {
		var subjects []string
		text, subjects = e.consume(text, marker)
		result.Dislikes = append(result.Dislikes, subjects...)
	}
	for _, marker := range likeMarkers {
		var subjects []string
		text, subjects = e.consume(text, marker)
		result.Likes = append(result.Likes, subjects...)
	}
	return result, nil
}

// consume finds every occurrence of marker, clips the subject phrase that
// follows it and blanks the marker so later passes cannot rematch it. The
// blanked copy keeps byte offsets stable.
func (e *KeywordExtractor) consume(text, marker string) (string, []string) {
	var subjects []string
	offset := 0
	for {
		rel := strings.Index(text[offset:], marker)
		if rel < 0 {
			break
		}
		idx := offset + rel
		subject := e.clip(text[idx+len(marker):])
		if subject != "" {
			subjects = append(subjects, subject)
		}
		text = text[:idx] + strings.Repeat(" ", len(marker)) + text[idx+len(marker):]
		offset = idx + len(marker)
	}
	return text, subjects
}

// clip cuts the text at the first terminator and trims it to a bounded
// subject phrase.
func (e *KeywordExtractor) clip(text string) string {
	end := len(text)
	for _, term := range terminators {
		if i := strings.Index(text, term); i >= 0 && i < end {
			end = i
		}
	}
	subject := strings.TrimSpace(text[:end])
	runes := []rune(subject)
	if len(runes) > e.maxSubjectLen {
		subject = string(runes[:e.maxSubjectLen])
	}
	return subject
}

var _ Extractor = (*KeywordExtractor)(nil)
