package services

import (
	"context"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/stretchr/testify/assert"
)

func TestParseEncoding(t *testing.T) {
	enc, err := parseEncoding("audio/ogg")
	assert.NoError(t, err)
	assert.Equal(t, speechpb.RecognitionConfig_OGG_OPUS, enc)

	enc, err = parseEncoding("OGG_OPUS")
	assert.NoError(t, err)
	assert.Equal(t, speechpb.RecognitionConfig_OGG_OPUS, enc)

	_, err = parseEncoding("mp3")
	assert.Error(t, err)
}

func TestTranscriptFromResults(t *testing.T) {
	t.Run("joins top alternatives", func(t *testing.T) {
		transcript, confidence, err := transcriptFromResults([]*speechpb.SpeechRecognitionResult{
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "one hundred", Confidence: 0.9}}},
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "fifty", Confidence: 0.7}}},
		})
		assert.NoError(t, err)
		assert.Equal(t, "one hundred fifty", transcript)
		assert.InDelta(t, 0.8, confidence, 0.0001)
	})

	t.Run("no results", func(t *testing.T) {
		_, _, err := transcriptFromResults(nil)
		assert.Error(t, err)
	})

	t.Run("results without alternatives", func(t *testing.T) {
		_, _, err := transcriptFromResults([]*speechpb.SpeechRecognitionResult{{}})
		assert.Error(t, err)
	})
}

func TestVoiceTranscriber_Unavailable(t *testing.T) {
	var transcriber *VoiceTranscriber
	_, _, err := transcriber.Transcribe(context.Background(), []byte{1}, "OGG_OPUS")
	assert.ErrorIs(t, err, ErrTranscriberUnavailable)

	_, _, err = (&VoiceTranscriber{}).Transcribe(context.Background(), []byte{1}, "OGG_OPUS")
	assert.ErrorIs(t, err, ErrTranscriberUnavailable)
	assert.NoError(t, transcriber.Close())
}

func TestNormalizeSpokenAmount(t *testing.T) {
	cases := map[string]string{
		"150":         "150",
		"1,000.":      "1000",
		"Minus 50":    "-50",
		"negative 33": "-33",
		" 2 000 ":     "2000",
		"hello there": "hellothere",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeSpokenAmount(in), in)
	}
}
