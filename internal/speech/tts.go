package speech

import (
	"context"
	"encoding/base64"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"github.com/HeadupandFace/cbt-companion-app/internal/config"
	"github.com/HeadupandFace/cbt-companion-app/internal/persona"
)

// CloudPlatformScope is the OAuth scope the synthesis endpoint accepts.
const CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Synthesizer produces base64 audio clips, one per non-empty paragraph of text.
type Synthesizer interface {
	// Synthesize returns the clips in paragraph order. On failure it returns the
	// clips produced before the failing paragraph alongside the error.
	Synthesize(ctx context.Context, text string, voice persona.VoiceGender) ([]string, error)
}

// Disabled is the Synthesizer used when speech is turned off.
type Disabled struct{}

// Synthesize returns an empty clip list.
func (Disabled) Synthesize(context.Context, string, persona.VoiceGender) ([]string, error) {
	return []string{}, nil
}

// New returns a CloudTTS authenticated with application default credentials,
// or Disabled when speech is turned off.
func New(ctx context.Context, cfg config.SpeechConfig) (Synthesizer, error) {
	if !cfg.Enabled {
		return Disabled{}, nil
	}
	creds, err := google.FindDefaultCredentials(ctx, CloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("failed to load speech credentials: %w", err)
	}
	return NewCloudTTS(ctx, cfg, option.WithTokenSource(creds.TokenSource))
}

// CloudTTS synthesizes speech through the Text-to-Speech REST transport.
type CloudTTS struct {
	client       *texttospeech.Client
	languageCode string
	speakingRate float64
}

// NewCloudTTS creates a CloudTTS against cfg.Endpoint. opts must supply credentials.
func NewCloudTTS(ctx context.Context, cfg config.SpeechConfig, opts ...option.ClientOption) (*CloudTTS, error) {
	if cfg.Endpoint != "" {
		opts = append([]option.ClientOption{option.WithEndpoint(cfg.Endpoint)}, opts...)
	}
	client, err := texttospeech.NewRESTClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	// Calls are never retried.
	client.CallOptions.SynthesizeSpeech = nil
	return &CloudTTS{
		client:       client,
		languageCode: cfg.LanguageCode,
		speakingRate: cfg.SpeakingRate,
	}, nil
}

// Close releases the underlying client.
func (c *CloudTTS) Close() error {
	return c.client.Close()
}

// Synthesize requests audio sequentially, one paragraph at a time.
func (c *CloudTTS) Synthesize(ctx context.Context, text string, voice persona.VoiceGender) ([]string, error) {
	clips := []string{}
	for i, p := range Paragraphs(text) {
		resp, err := c.client.SynthesizeSpeech(ctx, c.request(p, voice))
		if err != nil {
			return clips, fmt.Errorf("paragraph %d: %w", i, err)
		}
		if len(resp.GetAudioContent()) == 0 {
			return clips, fmt.Errorf("paragraph %d: empty audio content", i)
		}
		clips = append(clips, base64.StdEncoding.EncodeToString(resp.GetAudioContent()))
	}
	return clips, nil
}

func (c *CloudTTS) request(paragraph string, voice persona.VoiceGender) *texttospeechpb.SynthesizeSpeechRequest {
	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Ssml{Ssml: SSML(paragraph)},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: c.languageCode,
			SsmlGender:   ssmlGender(voice),
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  c.speakingRate,
		},
	}
}

func ssmlGender(voice persona.VoiceGender) texttospeechpb.SsmlVoiceGender {
	if v, ok := texttospeechpb.SsmlVoiceGender_value[string(voice)]; ok {
		return texttospeechpb.SsmlVoiceGender(v)
	}
	return texttospeechpb.SsmlVoiceGender_SSML_VOICE_GENDER_UNSPECIFIED
}

var (
	_ Synthesizer = Disabled{}
	_ Synthesizer = (*CloudTTS)(nil)
)
