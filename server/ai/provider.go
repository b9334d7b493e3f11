// Package ai wraps outbound calls to the hosted model API: chat completion,
// speech-to-text and text-to-speech.
package ai

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ningoooo/rolechat/internal/profile"
	apierr "github.com/ningoooo/rolechat/server/internal/errors"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// Gateway is the model gateway interface. Each call is a single blocking
// attempt with a fixed timeout; retry policy, if any, belongs to the caller.
type Gateway interface {
	// CompleteChat performs a chat completion over the assembled messages.
	CompleteChat(ctx context.Context, messages []Message) (string, error)

	// Transcribe converts uploaded audio to text. The language hint is fixed
	// to the deployment's configured locale.
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)

	// Synthesize converts text to speech and returns the encoded audio.
	Synthesize(ctx context.Context, text, voice, format string) ([]byte, error)
}

// Provider is the go-openai backed Gateway.
type Provider struct {
	client  *openai.Client
	profile *profile.Profile
}

// NewProvider creates a new model gateway from the profile.
func NewProvider(p *profile.Profile) *Provider {
	clientConfig := openai.DefaultConfig(p.OpenAIAPIKey)
	if p.OpenAIBaseURL != "" {
		clientConfig.BaseURL = p.OpenAIBaseURL
	}
	return &Provider{
		client:  openai.NewClientWithConfig(clientConfig),
		profile: p,
	}
}

func (p *Provider) timeout() time.Duration {
	if p.profile.ModelTimeout > 0 {
		return p.profile.ModelTimeout
	}
	return 30 * time.Second
}

// CompleteChat performs a chat completion.
func (p *Provider) CompleteChat(ctx context.Context, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	llmMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		llmMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.profile.ChatModel,
		Messages:    llmMessages,
		MaxTokens:   p.profile.MaxTokens,
		Temperature: p.profile.Temperature,
	})
	if err != nil {
		return "", mapModelError(err, "chat completion failed")
	}
	if len(resp.Choices) == 0 {
		return "", apierr.Wrap(nil, apierr.ErrCodeUpstreamError, "模型返回了空回复")
	}
	return resp.Choices[0].Message.Content, nil
}

// Transcribe converts audio bytes to text.
func (p *Provider) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    p.profile.AudioModel,
		Reader:   bytes.NewReader(audio),
		FilePath: filename,
		Language: p.profile.Locale,
	})
	if err != nil {
		return "", mapModelError(err, "transcription failed")
	}
	return resp.Text, nil
}

// Synthesize converts text to speech.
func (p *Provider) Synthesize(ctx context.Context, text, voice, format string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	if voice == "" {
		voice = p.profile.SpeechVoice
	}
	if format == "" {
		format = "mp3"
	}

	resp, err := p.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(p.profile.SpeechModel),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormat(format),
	})
	if err != nil {
		return nil, mapModelError(err, "speech synthesis failed")
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, apierr.Wrap(err, apierr.ErrCodeNetworkError, "读取语音合成结果失败")
	}
	return audio, nil
}

// mapModelError classifies an outbound failure into exactly one taxonomy
// code. Nothing is ever coerced to a generic failure.
func mapModelError(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apierr.Timeout("模型API请求超时，请稍后重试", err)
	}

	var apiError *openai.APIError
	if errors.As(err, &apiError) {
		switch apiError.HTTPStatusCode {
		case 401:
			return apierr.Unauthorized("API密钥无效，请配置正确的OpenAI API密钥")
		case 429:
			return apierr.RateLimitExceeded("API请求频率过高，请稍后重试")
		default:
			return apierr.Wrap(err, apierr.ErrCodeUpstreamError, msg)
		}
	}

	var reqError *openai.RequestError
	if errors.As(err, &reqError) {
		return apierr.Wrap(err, apierr.ErrCodeUpstreamError, msg)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return apierr.Timeout("模型API请求超时，请稍后重试", err)
		}
		return apierr.Wrap(err, apierr.ErrCodeNetworkError, msg)
	}

	return apierr.Wrap(err, apierr.ErrCodeNetworkError, msg)
}

// Ensure Provider implements Gateway.
var _ Gateway = (*Provider)(nil)
