package classifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/noah-isme/classroom-quest-api/pkg/config"
	"github.com/noah-isme/classroom-quest-api/pkg/storage"
)

type fakeGenerator struct {
	answer   string
	err      error
	messages []llms.MessageContent
}

func (f *fakeGenerator) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.answer}}}, nil
}

type recordingRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingRecorder) ObserveClassifierCall(kind, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, kind+":"+outcome)
}

func testConfig() config.ClassifierConfig {
	return config.ClassifierConfig{TextModel: "text", VisionModel: "vision", ImageModel: "image", Timeout: time.Second, MaxImageDimension: 64}
}

func TestAnalyzeCommentParsesModelAnswer(t *testing.T) {
	gen := &fakeGenerator{answer: "```json\n{\"isValid\": true, \"score\": 3, \"reason\": \"구체적\"}\n```"}
	rec := &recordingRecorder{}
	client := NewClient(testConfig(), WithGenerator(gen), WithRecorder(rec))

	result := client.AnalyzeComment(context.Background(), "영상에서 시간 관리 방법을 배웠다")
	assert.Equal(t, CommentAnalysis{IsValid: true, Score: 3, Reason: "구체적"}, result)
	assert.Equal(t, []string{"comment:ok"}, rec.calls)
	require.Len(t, gen.messages, 1)
}

func TestAnalyzeCommentClampsScore(t *testing.T) {
	client := NewClient(testConfig(), WithGenerator(&fakeGenerator{answer: `{"isValid": true, "score": 7, "reason": ""}`}))
	assert.Equal(t, 3, client.AnalyzeComment(context.Background(), "text").Score)

	client = NewClient(testConfig(), WithGenerator(&fakeGenerator{answer: `{"isValid": false, "score": 0, "reason": "spam"}`}))
	result := client.AnalyzeComment(context.Background(), "text")
	assert.False(t, result.IsValid)
	assert.Equal(t, 1, result.Score)
}

func TestAnalyzeCommentFallback(t *testing.T) {
	cases := []struct {
		name    string
		client  *Client
		text    string
		valid   bool
		score   int
		outcome string
	}{
		{"disabled short", NewClient(testConfig()), "좋아요", false, 2, "comment:disabled"},
		{"disabled medium", NewClient(testConfig()), "재미있었습니다", true, 2, "comment:disabled"},
		{"error long", NewClient(testConfig(), WithGenerator(&fakeGenerator{err: errors.New("quota")})), strings.Repeat("가", 21), true, 3, "comment:fallback"},
		{"garbage answer", NewClient(testConfig(), WithGenerator(&fakeGenerator{answer: "I think it is fine"})), "abcdef", true, 2, "comment:fallback"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recordingRecorder{}
			WithRecorder(rec)(tc.client)
			result := tc.client.AnalyzeComment(context.Background(), tc.text)
			assert.Equal(t, tc.valid, result.IsValid)
			assert.Equal(t, tc.score, result.Score)
			assert.True(t, result.Fallback)
			assert.Equal(t, []string{tc.outcome}, rec.calls)
		})
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func TestVerifyChallengeImageDownscalesAndParses(t *testing.T) {
	gen := &fakeGenerator{answer: `{"isValid": false, "reason": "책이 보이지 않아요"}`}
	client := NewClient(testConfig(), WithGenerator(gen))

	result := client.VerifyChallengeImage(context.Background(), pngBytes(t, 300, 150), "아침 독서")
	assert.False(t, result.IsValid)
	assert.Equal(t, "책이 보이지 않아요", result.Reason)

	require.Len(t, gen.messages, 1)
	parts := gen.messages[0].Parts
	require.Len(t, parts, 2)
	binary, ok := parts[0].(llms.BinaryContent)
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", binary.MIMEType)

	decoded, err := imaging.Decode(bytes.NewReader(binary.Data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 32), decoded.Bounds())
}

func TestVerifyChallengeImageFailsOpen(t *testing.T) {
	client := NewClient(testConfig(), WithGenerator(&fakeGenerator{err: errors.New("timeout")}))
	result := client.VerifyChallengeImage(context.Background(), []byte("not an image"), "Read")
	assert.True(t, result.IsValid)
	assert.True(t, result.Fallback)

	assert.True(t, NewClient(testConfig()).VerifyChallengeImage(context.Background(), nil, "Read").IsValid)
}

func TestGeneratePraise(t *testing.T) {
	assert.Equal(t, "Good job!", NewClient(testConfig()).GeneratePraise(context.Background(), "Kim", "Teamwork", 2))

	failing := NewClient(testConfig(), WithGenerator(&fakeGenerator{err: errors.New("down")}))
	assert.Equal(t, "Well done, Kim!", failing.GeneratePraise(context.Background(), "Kim", "Teamwork", 2))

	ok := NewClient(testConfig(), WithGenerator(&fakeGenerator{answer: " \"Amazing teamwork, Kim!\" "}))
	assert.Equal(t, "Amazing teamwork, Kim!", ok.GeneratePraise(context.Background(), "Kim", "Teamwork", 2))
}

func TestGenerateClassThumbnail(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(pngBytes(t, 1280, 720))
	var gotKey, gotPath string
	var gotBody generateImageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{"content": map[string]any{"parts": []any{
				map[string]any{"text": "here you go"},
				map[string]any{"inlineData": map[string]any{"mimeType": "image/png", "data": encoded}},
			}}}},
		})
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Endpoint = server.URL
	cfg.APIKey = "key"
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	client := NewClient(cfg, WithThumbnails(NewThumbnailGenerator(cfg, server.Client(), store, signer, "/thumbnails/")))

	link := client.GenerateClassThumbnail(context.Background(), "school-a", "Fractions")
	require.True(t, strings.HasPrefix(link, "/thumbnails/"))
	assert.Equal(t, "key", gotKey)
	assert.Equal(t, "/models/image:generateContent", gotPath)
	assert.Equal(t, "16:9", gotBody.GenerationConfig.ImageConfig.AspectRatio)
	assert.Contains(t, gotBody.Contents[0].Parts[0].Text, "Fractions")

	_, path, _, err := signer.Parse(strings.TrimPrefix(link, "/thumbnails/"), false)
	require.NoError(t, err)
	file, err := store.Open(path)
	require.NoError(t, err)
	defer file.Close()
	stored, err := imaging.Decode(file)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, ThumbnailWidth, ThumbnailHeight), stored.Bounds())
}

func TestGenerateClassThumbnailFailureYieldsNone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Endpoint = server.URL
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	client := NewClient(cfg, WithThumbnails(NewThumbnailGenerator(cfg, server.Client(), store, storage.NewSignedURLSigner("s", time.Hour), "/t/")))

	assert.Empty(t, client.GenerateClassThumbnail(context.Background(), "school-a", "Fractions"))
	assert.Empty(t, NewClient(cfg).GenerateClassThumbnail(context.Background(), "school-a", "Fractions"))
}

func TestThumbnailGeneratorOpenAndRemove(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	gen := NewThumbnailGenerator(testConfig(), nil, store, signer, "/thumbnails/")

	name, err := store.Save("tenant/abc.png", pngBytes(t, 4, 4))
	require.NoError(t, err)
	token, _, err := signer.Generate("abc", name)
	require.NoError(t, err)

	file, err := gen.Open(token)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	require.NoError(t, gen.Remove("/thumbnails/"+token))
	_, err = gen.Open(token)
	assert.Error(t, err)

	assert.Error(t, gen.Remove("https://example.com/picture.png"))
}

func TestThumbnailGeneratorAssetRoundTrip(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	gen := NewThumbnailGenerator(testConfig(), nil, store, storage.NewSignedURLSigner("secret", time.Hour), "/thumbnails/")

	asset := assetDir("school-a") + "/0b7e5d0c-6f0e-4b8e-9a36-3f1f5f1c2a10.png"
	_, err = store.Save(asset, pngBytes(t, 4, 4))
	require.NoError(t, err)

	link, err := gen.LinkFor(asset)
	require.NoError(t, err)
	resolved, ok := gen.AssetFromLink("school-a", link)
	require.True(t, ok)
	assert.Equal(t, asset, resolved)
	_, ok = gen.AssetFromLink("school-b", link)
	assert.False(t, ok)

	_, err = gen.LinkFor("../etc/passwd")
	assert.ErrorIs(t, err, storage.ErrInvalidSignature)

	require.NoError(t, gen.Remove(asset))
	_, err = store.Open(asset)
	assert.Error(t, err)
}
