package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/mjunaidjbr/salawat-tally-bot/internal/config"
)

var ErrTranscriberUnavailable = errors.New("speech client not configured")

// Telegram voice notes are Opus in an Ogg container at 48kHz.
const voiceNoteSampleRate = 48000

type VoiceTranscriber struct {
	client       *speech.Client
	languageCode string
}

// NewVoiceTranscriber connects to Google Speech using application default
// credentials. On failure it returns a transcriber that reports
// ErrTranscriberUnavailable so voice notes are handled as non-numeric text.
func NewVoiceTranscriber(ctx context.Context, cfg *config.VoiceConfig) *VoiceTranscriber {
	t := &VoiceTranscriber{languageCode: cfg.LanguageCode}
	client, err := speech.NewClient(ctx)
	if err != nil {
		log.Printf("Warning: Failed to initialize speech client: %v", err)
		return t
	}
	t.client = client
	return t
}

// Transcribe returns the transcript of audio and the mean confidence of the
// top alternatives.
func (s *VoiceTranscriber) Transcribe(ctx context.Context, audio []byte, encoding string) (string, float32, error) {
	if s == nil || s.client == nil {
		return "", 0, ErrTranscriberUnavailable
	}
	if len(audio) == 0 {
		return "", 0, errors.New("audio data is empty")
	}

	audioEncoding, err := parseEncoding(encoding)
	if err != nil {
		return "", 0, err
	}

	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        audioEncoding,
			SampleRateHertz: voiceNoteSampleRate,
			LanguageCode:    s.languageCode,
			Model:           "latest_short",
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{
				Content: audio,
			},
		},
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := s.client.Recognize(timeoutCtx, req)
	if err != nil {
		return "", 0, fmt.Errorf("recognition failed: %w", err)
	}
	return transcriptFromResults(resp.GetResults())
}

func transcriptFromResults(results []*speechpb.SpeechRecognitionResult) (string, float32, error) {
	if len(results) == 0 {
		return "", 0, errors.New("no transcription results")
	}

	var transcript strings.Builder
	var totalConfidence float32
	var count int

	for _, result := range results {
		if len(result.Alternatives) > 0 {
			alternative := result.Alternatives[0]
			transcript.WriteString(alternative.Transcript)
			transcript.WriteString(" ")
			totalConfidence += alternative.Confidence
			count++
		}
	}

	if count == 0 {
		return "", 0, errors.New("no alternatives in results")
	}

	return strings.TrimSpace(transcript.String()), totalConfidence / float32(count), nil
}

// NormalizeSpokenAmount rewrites a transcript such as "minus 1,000." into
// "-1000" so it can go through ParseAmount like typed text.
func NormalizeSpokenAmount(transcript string) string {
	s := strings.ToLower(strings.TrimSpace(transcript))
	s = strings.TrimRight(s, ".!?")
	for _, prefix := range []string{"minus ", "negative "} {
		if strings.HasPrefix(s, prefix) {
			s = "-" + strings.TrimPrefix(s, prefix)
			break
		}
	}
	s = strings.NewReplacer(",", "", " ", "").Replace(s)
	return s
}

func parseEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch strings.ToUpper(encoding) {
	case "OGG_OPUS", "AUDIO/OGG":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS", "AUDIO/WEBM":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC", "AUDIO/FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "AMR":
		return speechpb.RecognitionConfig_AMR, nil
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}

func (s *VoiceTranscriber) Close() error {
	if s != nil && s.client != nil {
		return s.client.Close()
	}
	return nil
}
