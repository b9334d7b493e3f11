package v1

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	apierr "github.com/ningoooo/rolechat/server/internal/errors"
)

// maxAudioUploadBytes bounds transcription uploads. Whisper rejects files
// over 25MB anyway, so larger uploads fail fast locally.
const maxAudioUploadBytes = 25 << 20

// PostVoiceTranscribe accepts a multipart audio upload and returns its
// transcript.
func (s *APIV1Service) PostVoiceTranscribe(c echo.Context) error {
	ctx := c.Request().Context()

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		return replyBadRequest(c, "缺少音频文件")
	}
	if fileHeader.Size > maxAudioUploadBytes {
		return replyBadRequest(c, "音频文件过大，最大支持25MB")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return replyError(c, apierr.InvalidArgument("无法读取音频文件"))
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxAudioUploadBytes))
	if err != nil {
		return replyError(c, apierr.InvalidArgument("无法读取音频文件"))
	}

	text, err := s.Gateway.Transcribe(ctx, audio, fileHeader.Filename)
	if err != nil {
		s.Metrics.RecordModelError()
		return replyError(c, err)
	}
	s.Metrics.RecordTranscription()
	return replyOK(c, map[string]any{"transcription": text})
}

type synthesizeRequest struct {
	Text   string `json:"text"`
	Voice  string `json:"voice"`
	Format string `json:"format"`
}

// PostVoiceSynthesize converts text to speech and streams the audio back.
// Concurrency is bounded because each synthesis holds the full audio
// buffer in memory.
func (s *APIV1Service) PostVoiceSynthesize(c echo.Context) error {
	ctx := c.Request().Context()

	var req synthesizeRequest
	if err := c.Bind(&req); err != nil {
		return replyBadRequest(c, "请求格式错误")
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return replyBadRequest(c, "文本内容不能为空")
	}

	if err := s.synthesisSemaphore.Acquire(ctx, 1); err != nil {
		return replyError(c, apierr.Timeout("合成请求排队超时", err))
	}
	defer s.synthesisSemaphore.Release(1)

	audio, err := s.Gateway.Synthesize(ctx, req.Text, req.Voice, req.Format)
	if err != nil {
		s.Metrics.RecordModelError()
		return replyError(c, err)
	}
	s.Metrics.RecordSynthesis()

	contentType := "audio/mpeg"
	if req.Format != "" && req.Format != "mp3" {
		contentType = "application/octet-stream"
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="speech.`+formatExtension(req.Format)+`"`)
	return c.Blob(http.StatusOK, contentType, audio)
}

func formatExtension(format string) string {
	if format == "" {
		return "mp3"
	}
	return format
}
