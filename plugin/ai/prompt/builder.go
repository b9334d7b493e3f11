// Package prompt assembles the ordered instruction sequence sent to the
// model on each chat turn: system entry, optional memory digest, a bounded
// window of prior turns and the new user message.
package prompt

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"

	"github.com/ningoooo/rolechat/server/ai"
	"github.com/ningoooo/rolechat/store"
)

// BuildContext contains all inputs for one turn's prompt assembly.
type BuildContext struct {
	CharacterName        string
	CharacterDescription string
	// SystemPrompt, when non-empty, is a hand-authored per-character
	// template used verbatim instead of the generated default.
	SystemPrompt string
	// Memory is the stored record for this (user, character) pair; nil or
	// empty records produce no memory block.
	Memory *store.UserMemory
	// History is the conversation's stored message list in chronological
	// order. Only the most recent window is kept.
	History     []store.Message
	UserMessage string
}

// Builder assembles prompts. Given identical inputs the output is
// identical; all randomness lives in the model's sampling.
type Builder struct {
	historyLimit int
}

// NewBuilder creates a prompt Builder with the given history window bound.
func NewBuilder(historyLimit int) *Builder {
	if historyLimit <= 0 {
		historyLimit = 20
	}
	return &Builder{historyLimit: historyLimit}
}

// Build assembles the full message sequence for one turn.
func (b *Builder) Build(ctx BuildContext) ([]ai.Message, error) {
	if ctx.CharacterName == "" {
		return nil, errors.New("character name is required")
	}
	if ctx.UserMessage == "" {
		return nil, errors.New("user message is required")
	}

	system, err := b.systemEntry(ctx)
	if err != nil {
		return nil, err
	}

	history := ctx.History
	if len(history) > b.historyLimit {
		// Older turns are silently dropped, never summarized.
		history = history[len(history)-b.historyLimit:]
	}

	messages := make([]ai.Message, 0, len(history)+2)
	messages = append(messages, ai.Message{Role: "system", Content: system})
	for _, m := range history {
		messages = append(messages, ai.Message{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, ai.Message{Role: "user", Content: ctx.UserMessage})
	return messages, nil
}

// systemEntry renders the system instruction with the optional memory
// digest appended.
func (b *Builder) systemEntry(ctx BuildContext) (string, error) {
	var buf bytes.Buffer

	if ctx.SystemPrompt != "" {
		buf.WriteString(ctx.SystemPrompt)
	} else {
		data := struct {
			Name        string
			Description string
		}{
			Name:        ctx.CharacterName,
			Description: ctx.CharacterDescription,
		}
		if err := systemTemplate.Execute(&buf, data); err != nil {
			return "", errors.Wrap(err, "failed to render system template")
		}
	}

	if !ctx.Memory.IsEmpty() {
		if err := memoryTemplate.Execute(&buf, ctx.Memory); err != nil {
			return "", errors.Wrap(err, "failed to render memory digest")
		}
	}
	return buf.String(), nil
}

func joinStrings(values []string, sep string) string {
	return strings.Join(values, sep)
}
