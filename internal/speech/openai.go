package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Config holds the OpenAI audio model selection.
type Config struct {
	APIKey   string
	TTSModel string // e.g. "tts-1"
	STTModel string // e.g. "whisper-1"
}

// DefaultConfig returns the default audio models.
func DefaultConfig() Config {
	return Config{
		TTSModel: "tts-1",
		STTModel: "whisper-1",
	}
}

// OpenAISpeech implements Synthesizer and Transcriber over the OpenAI audio
// API.
type OpenAISpeech struct {
	client openai.Client
	config Config
}

// NewOpenAISpeech creates the OpenAI-backed speech provider.
func NewOpenAISpeech(config Config) (*OpenAISpeech, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing API key", ErrSynthesisFailed)
	}
	if config.TTSModel == "" {
		config.TTSModel = DefaultConfig().TTSModel
	}
	if config.STTModel == "" {
		config.STTModel = DefaultConfig().STTModel
	}

	return &OpenAISpeech{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		config: config,
	}, nil
}

// Synthesize converts text to audio in the requested format (wav or mp3).
func (s *OpenAISpeech) Synthesize(ctx context.Context, text, voice, format string) ([]byte, string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, "", ErrEmptyText
	}
	// The limit is in characters, not bytes.
	if n := utf8.RuneCountInString(text); n > MaxTextLength {
		return nil, "", fmt.Errorf("%w: %d > %d characters", ErrTextTooLong, n, MaxTextLength)
	}

	responseFormat, contentType, err := resolveFormat(format)
	if err != nil {
		return nil, "", err
	}

	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(s.config.TTSModel),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(ResolveVoice(voice)),
		ResponseFormat: responseFormat,
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	return audio, contentType, nil
}

// Transcribe converts audio bytes to text.
func (s *OpenAISpeech) Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}
	if filename == "" {
		filename = "audio.wav"
	}

	params := openai.AudioTranscriptionNewParams{
		Model: openai.AudioModel(s.config.STTModel),
		File:  openai.File(bytes.NewReader(audio), filename, contentTypeFor(filename)),
	}
	if language != "" {
		params.Language = openai.String(language)
	}

	transcription, err := s.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}
	return transcription.Text, nil
}

func resolveFormat(format string) (openai.AudioSpeechNewParamsResponseFormat, string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "wav":
		return openai.AudioSpeechNewParamsResponseFormatWAV, "audio/wav", nil
	case "mp3":
		return openai.AudioSpeechNewParamsResponseFormatMP3, "audio/mpeg", nil
	default:
		return "", "", fmt.Errorf("%w: %q (supported: wav, mp3)", ErrUnsupportedFormat, format)
	}
}

func contentTypeFor(filename string) string {
	switch {
	case strings.HasSuffix(filename, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(filename, ".ogg"):
		return "audio/ogg"
	case strings.HasSuffix(filename, ".m4a"):
		return "audio/mp4"
	case strings.HasSuffix(filename, ".flac"):
		return "audio/flac"
	default:
		return "audio/wav"
	}
}
