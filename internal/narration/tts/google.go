package tts

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	texttospeechpb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1"
)

const (
	googleChunkLimit = 4800 // a little under 5000 to be safe
	googleMemCache   = 64
)

// GoogleEngine synthesizes with Google Cloud Text-to-Speech and plays the MP3
// through the local speaker. Audio is cached on disk and in memory.
type GoogleEngine struct {
	client   *texttospeech.Client
	volume   float64
	cacheDir string
	mem      *lru.Cache[string, []byte]

	mu         sync.Mutex
	sampleRate beep.SampleRate
}

func newGoogleEngine(config Config) (*GoogleEngine, error) {
	client, err := texttospeech.NewClient(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}

	cacheDir := config.CachePath
	if cacheDir == "" {
		cacheDir = defaultCacheDir()
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	mem, err := lru.New[string, []byte](googleMemCache)
	if err != nil {
		return nil, err
	}

	return &GoogleEngine{
		client:   client,
		volume:   config.Volume,
		cacheDir: cacheDir,
		mem:      mem,
	}, nil
}

func (g *GoogleEngine) Name() string {
	return EngineTypeGoogle.String()
}

func (g *GoogleEngine) Speak(ctx context.Context, u Utterance) error {
	for i, chunk := range splitIntoChunks(u.Text, googleChunkLimit) {
		audio, err := g.audio(ctx, u, chunk)
		if err != nil {
			return fmt.Errorf("failed to synthesize chunk %d: %w", i, err)
		}
		if err := g.play(ctx, audio); err != nil {
			return err
		}
	}
	return nil
}

// audio returns MP3 bytes for chunk, from memory, disk or the API in that order.
func (g *GoogleEngine) audio(ctx context.Context, u Utterance, chunk string) ([]byte, error) {
	key := md5Sum(fmt.Sprintf("%s|%s|%.2f|%s", u.Locale, u.Voice, u.Rate, chunk))
	if data, ok := g.mem.Get(key); ok {
		return data, nil
	}

	path := filepath.Join(g.cacheDir, key[:2], key+".mp3")
	if data, err := os.ReadFile(path); err == nil {
		g.mem.Add(key, data)
		return data, nil
	}

	voice := &texttospeechpb.VoiceSelectionParams{LanguageCode: u.Locale}
	if u.Voice != "" {
		voice.Name = u.Voice
	}

	audioCfg := &texttospeechpb.AudioConfig{
		AudioEncoding: texttospeechpb.AudioEncoding_MP3,
	}
	// Chirp voices don't support speakingRate
	if !strings.Contains(strings.ToLower(u.Voice), "chirp") {
		audioCfg.SpeakingRate = u.Rate
		if g.volume > 0 && g.volume != 1 {
			audioCfg.VolumeGainDb = 20 * math.Log10(g.volume)
		}
	}

	resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: chunk},
		},
		Voice:       voice,
		AudioConfig: audioCfg,
	})
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err == nil {
		if err := os.WriteFile(path, resp.AudioContent, 0644); err != nil {
			logrus.WithError(err).WithField("file", path).Warn("failed to cache synthesized audio")
		}
	}
	g.mem.Add(key, resp.AudioContent)

	return resp.AudioContent, nil
}

// play blocks until the clip ends or ctx is cancelled.
func (g *GoogleEngine) play(ctx context.Context, audio []byte) error {
	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(audio)))
	if err != nil {
		return fmt.Errorf("failed to decode MP3: %w", err)
	}
	defer streamer.Close()

	rate, err := g.initSpeaker(format.SampleRate)
	if err != nil {
		return err
	}

	var s beep.Streamer = streamer
	if format.SampleRate != rate {
		s = beep.Resample(4, format.SampleRate, rate, streamer)
	}

	ctrl := &beep.Ctrl{Streamer: s}
	done := make(chan struct{})
	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		// a nil streamer ends the sequence on the next buffer
		speaker.Lock()
		ctrl.Streamer = nil
		speaker.Unlock()
		<-done
		return ctx.Err()
	}
}

func (g *GoogleEngine) initSpeaker(rate beep.SampleRate) (beep.SampleRate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.sampleRate != 0 {
		return g.sampleRate, nil
	}
	if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
		return 0, fmt.Errorf("failed to init speaker: %w", err)
	}
	g.sampleRate = rate
	return rate, nil
}

func (g *GoogleEngine) Voices(ctx context.Context) ([]VoiceInfo, error) {
	resp, err := g.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{LanguageCode: Locale})
	if err != nil {
		return nil, err
	}

	voices := make([]VoiceInfo, 0, len(resp.Voices))
	for _, v := range resp.Voices {
		lang := ""
		if len(v.LanguageCodes) > 0 {
			lang = v.LanguageCodes[0]
		}
		voices = append(voices, VoiceInfo{
			Name:         v.Name,
			LanguageCode: lang,
			Gender:       strings.ToLower(v.SsmlGender.String()),
		})
	}
	return voices, nil
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "quizbuzzer", "google")
	}
	return filepath.Join("cache", "google")
}

func md5Sum(s string) string {
	h := md5.New()
	io.WriteString(h, s)
	return fmt.Sprintf("%x", h.Sum(nil))
}

func splitIntoChunks(text string, limit int) []string {
	var chunks []string
	runes := []rune(text) // safe for UTF-8
	for i := 0; i < len(runes); i += limit {
		end := i + limit
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}
