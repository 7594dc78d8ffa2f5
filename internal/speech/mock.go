package speech

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MockSpeech is a deterministic Synthesizer/Transcriber for testing.
type MockSpeech struct {
	// SynthesizeErr, if set, is returned by Synthesize.
	SynthesizeErr error

	// TranscribeErr, if set, is returned by Transcribe.
	TranscribeErr error

	// Transcript is the fixed text returned by Transcribe.
	Transcript string

	SynthesizeCalls int
	TranscribeCalls int
}

// Synthesize validates like the real provider and returns fake audio bytes
// describing the request.
func (m *MockSpeech) Synthesize(_ context.Context, text, voice, format string) ([]byte, string, error) {
	m.SynthesizeCalls++
	if m.SynthesizeErr != nil {
		return nil, "", m.SynthesizeErr
	}
	if strings.TrimSpace(text) == "" {
		return nil, "", ErrEmptyText
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return nil, "", ErrTextTooLong
	}
	_, contentType, err := resolveFormat(format)
	if err != nil {
		return nil, "", err
	}
	return []byte(fmt.Sprintf("audio(%s,%s):%s", ResolveVoice(voice), format, text)), contentType, nil
}

// Transcribe returns the configured transcript.
func (m *MockSpeech) Transcribe(_ context.Context, audio []byte, _, _ string) (string, error) {
	m.TranscribeCalls++
	if m.TranscribeErr != nil {
		return "", m.TranscribeErr
	}
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}
	if m.Transcript != "" {
		return m.Transcript, nil
	}
	return "transcribed audio", nil
}
