package speech

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/HeadupandFace/cbt-companion-app/internal/config"
	"github.com/HeadupandFace/cbt-companion-app/internal/persona"
)

func testConfig(endpoint string) config.SpeechConfig {
	return config.SpeechConfig{
		Enabled:      true,
		Endpoint:     endpoint,
		LanguageCode: "en-GB",
		SpeakingRate: 0.9,
	}
}

func newTestTTS(t *testing.T, handler http.HandlerFunc) *CloudTTS {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	tts, err := NewCloudTTS(context.Background(), testConfig(server.URL),
		option.WithHTTPClient(server.Client()),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { tts.Close() })
	return tts
}

func writeAudio(t *testing.T, w http.ResponseWriter, audio []byte) {
	t.Helper()
	body, err := protojson.Marshal(&texttospeechpb.SynthesizeSpeechResponse{AudioContent: audio})
	require.NoError(t, err)
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func TestCloudTTS_Synthesize(t *testing.T) {
	var (
		mu       sync.Mutex
		requests []*texttospeechpb.SynthesizeSpeechRequest
	)
	tts := newTestTTS(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text:synthesize", r.URL.Path)
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		req := &texttospeechpb.SynthesizeSpeechRequest{}
		require.NoError(t, protojson.Unmarshal(raw, req))

		mu.Lock()
		requests = append(requests, req)
		mu.Unlock()
		writeAudio(t, w, []byte("mp3:"+req.GetInput().GetSsml()))
	})

	clips, err := tts.Synthesize(context.Background(), "First.\n\n\n\nSecond?", persona.VoiceFemale)
	require.NoError(t, err)
	require.Len(t, clips, 2)
	// "mp3:<speak>First.<break time=\"500ms\"/></speak>" base64 encoded.
	assert.Equal(t, "bXAzOjxzcGVhaz5GaXJzdC48YnJlYWsgdGltZT0iNTAwbXMiLz48L3NwZWFrPg==", clips[0])

	require.Len(t, requests, 2)
	assert.Equal(t, "en-GB", requests[0].GetVoice().GetLanguageCode())
	assert.Equal(t, texttospeechpb.SsmlVoiceGender_FEMALE, requests[0].GetVoice().GetSsmlGender())
	assert.Equal(t, texttospeechpb.AudioEncoding_MP3, requests[0].GetAudioConfig().GetAudioEncoding())
	assert.InDelta(t, 0.9, requests[0].GetAudioConfig().GetSpeakingRate(), 1e-9)
}

func TestCloudTTS_PartialFailure(t *testing.T) {
	var calls atomic.Int32
	tts := newTestTTS(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 2 {
			http.Error(w, "quota", http.StatusTooManyRequests)
			return
		}
		writeAudio(t, w, []byte("ok"))
	})

	clips, err := tts.Synthesize(context.Background(), "one\n\ntwo\n\nthree", persona.VoiceMale)
	require.Error(t, err)
	assert.Len(t, clips, 1, "clips before the failing paragraph are kept")
	assert.EqualValues(t, 2, calls.Load(), "synthesis stops at the first failure")
}

func TestCloudTTS_InvalidAudio(t *testing.T) {
	tts := newTestTTS(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"audioContent":"***"}`))
	})

	clips, err := tts.Synthesize(context.Background(), "hello", persona.VoiceMale)
	assert.Error(t, err)
	assert.Empty(t, clips)
}

func TestSSMLGender(t *testing.T) {
	assert.Equal(t, texttospeechpb.SsmlVoiceGender_MALE, ssmlGender(persona.VoiceMale))
	assert.Equal(t, texttospeechpb.SsmlVoiceGender_FEMALE, ssmlGender(persona.VoiceFemale))
	assert.Equal(t, texttospeechpb.SsmlVoiceGender_SSML_VOICE_GENDER_UNSPECIFIED, ssmlGender("ROBOT"))
}

func TestDisabled(t *testing.T) {
	s, err := New(context.Background(), config.SpeechConfig{Enabled: false})
	require.NoError(t, err)

	clips, err := s.Synthesize(context.Background(), "Hello.\n\nAgain.", persona.VoiceFemale)
	require.NoError(t, err)
	assert.NotNil(t, clips)
	assert.Empty(t, clips)
}
