// Package speech wraps the text-to-speech and speech-to-text collaborators
// behind narrow interfaces. The chat core never depends on this package;
// voice-enabled flows compose these around ask externally.
package speech

import (
	"context"
	"errors"
	"sort"
)

var (
	ErrTextTooLong         = errors.New("text exceeds maximum synthesizable length")
	ErrEmptyText           = errors.New("no text provided for synthesis")
	ErrEmptyAudio          = errors.New("no audio provided for transcription")
	ErrUnsupportedFormat   = errors.New("unsupported audio format")
	ErrSynthesisFailed     = errors.New("speech synthesis failed")
	ErrTranscriptionFailed = errors.New("speech transcription failed")
)

// MaxTextLength bounds a single synthesis request.
const MaxTextLength = 1000

// Synthesizer converts text to audio bytes.
type Synthesizer interface {
	// Synthesize returns encoded audio and its content type.
	Synthesize(ctx context.Context, text, voice, format string) ([]byte, string, error)
}

// Transcriber converts audio bytes to text.
type Transcriber interface {
	// Transcribe returns the recognized text. language is an optional
	// ISO-639-1 hint.
	Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error)
}

// VoicePreset maps a named accent/voice to a provider voice id.
type VoicePreset struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ProviderID  string `json:"-"`
}

// voicePresets keeps the preset names the training frontend already uses.
var voicePresets = map[string]VoicePreset{
	"american_female": {Name: "american_female", Description: "American English, female", ProviderID: "nova"},
	"american_male":   {Name: "american_male", Description: "American English, male", ProviderID: "onyx"},
	"british_female":  {Name: "british_female", Description: "British English, female", ProviderID: "fable"},
	"south_african":   {Name: "south_african", Description: "South African English, female", ProviderID: "shimmer"},
	"neutral":         {Name: "neutral", Description: "Neutral English", ProviderID: "alloy"},
}

// DefaultVoice is used when a request names no preset or an unknown one.
const DefaultVoice = "neutral"

// Voices lists the available presets sorted by name.
func Voices() []VoicePreset {
	out := make([]VoicePreset, 0, len(voicePresets))
	for _, p := range voicePresets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ResolveVoice returns the provider voice id for a preset name, falling back
// to the default preset for unknown names.
func ResolveVoice(name string) string {
	if p, ok := voicePresets[name]; ok {
		return p.ProviderID
	}
	return voicePresets[DefaultVoice].ProviderID
}
