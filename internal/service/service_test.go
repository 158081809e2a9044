package service

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	cfg "github.com/maheshrc27/walk-gallery/configs"
	"github.com/maheshrc27/walk-gallery/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 16)...)
	wavBytes = append([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), make([]byte, 16)...)
)

type fakeUploader struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (u *fakeUploader) Upload(ctx context.Context, data []byte, kind, mimeType string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	if u.err != nil {
		return "", u.err
	}
	return "https://cdn.example/" + kind + "/obj", nil
}

func TestStageInline(t *testing.T) {
	svc := NewMediaService(nil)

	ref, err := svc.Stage(context.Background(), models.SlotImage, "walk.png", pngBytes)
	require.NoError(t, err)
	assert.Equal(t, "walk.png", ref.Name)
	assert.Equal(t, "image/png", ref.MimeType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pngBytes), ref.Data)
	assert.Empty(t, ref.URL)
}

func TestStageUploads(t *testing.T) {
	up := &fakeUploader{}
	svc := NewMediaService(up)

	ref, err := svc.Stage(context.Background(), models.SlotAudio, "recording.wav", wavBytes)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/audio/obj", ref.URL)
	assert.Empty(t, ref.Data)
	assert.Equal(t, 1, up.calls)
}

func TestStageRejects(t *testing.T) {
	svc := NewMediaService(&fakeUploader{})
	ctx := context.Background()

	_, err := svc.Stage(ctx, models.SlotImage, "a.png", nil)
	assert.True(t, errors.Is(err, ErrEmptyMedia))

	_, err = svc.Stage(ctx, models.SlotAudio, "a.png", pngBytes)
	assert.True(t, errors.Is(err, ErrUnsupportedMedia))

	_, err = svc.Stage(ctx, models.SlotImage, "notes.txt", []byte("just some text here"))
	assert.True(t, errors.Is(err, ErrUnsupportedMedia))

	_, err = svc.Stage(ctx, models.SlotWord, "a.png", pngBytes)
	assert.True(t, errors.Is(err, ErrUnsupportedMedia))
}

func TestStagePropagatesUploadFailure(t *testing.T) {
	svc := NewMediaService(&fakeUploader{err: ErrUploadUnavailable})

	_, err := svc.Stage(context.Background(), models.SlotDrawing, "sketch.png", pngBytes)
	assert.True(t, errors.Is(err, ErrUploadUnavailable))
}

type flakyPutter struct {
	failures int
	calls    int
	keys     []string
}

func (p *flakyPutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	p.calls++
	p.keys = append(p.keys, *in.Key)
	if p.failures != 0 {
		if p.failures > 0 {
			p.failures--
		}
		return nil, errors.New("connection reset")
	}
	return &s3.PutObjectOutput{}, nil
}

func newTestR2(p objectPutter) *R2Service {
	r := NewR2Service(cfg.Config{
		R2:            cfg.R2{BucketName: "walks", PublicURL: "https://pub.example"},
		UploadTimeout: time.Second,
	})
	r.once.Do(func() {})
	r.client = p
	return r
}

func TestR2UploadRetries(t *testing.T) {
	p := &flakyPutter{failures: 2}
	r := newTestR2(p)

	url, err := r.Upload(context.Background(), pngBytes, "image", "image/png")
	require.NoError(t, err)
	assert.Equal(t, 3, p.calls)
	assert.True(t, strings.HasPrefix(url, "https://pub.example/image/"))
	assert.Equal(t, p.keys[0], p.keys[2], "retries reuse the object key")
}

func TestR2UploadGivesUp(t *testing.T) {
	p := &flakyPutter{failures: -1}
	r := newTestR2(p)

	_, err := r.Upload(context.Background(), pngBytes, "image", "image/png")
	assert.True(t, errors.Is(err, ErrUploadUnavailable))
	assert.Equal(t, uploadAttempts, p.calls)
}

func TestOpenAIGenerate(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  echo in the valley  "}}]}`)
	}))
	defer srv.Close()

	svc := NewOpenAIService(cfg.Generation{
		OpenAI:  cfg.OpenAI{APIKey: "test", BaseURL: srv.URL},
		Timeout: time.Second,
	})

	text, err := svc.Generate(context.Background(), []string{"valley", "echo"})
	require.NoError(t, err)
	assert.Equal(t, "echo in the valley", text)
	assert.Contains(t, body, "valley, echo")
}

func TestOpenAIGenerateFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"quota","type":"insufficient_quota"}}`)
	}))
	defer srv.Close()

	svc := NewOpenAIService(cfg.Generation{OpenAI: cfg.OpenAI{APIKey: "test", BaseURL: srv.URL}})

	_, err := svc.Generate(context.Background(), []string{"echo"})
	assert.Error(t, err)
	assert.Equal(t, 1, calls, "no retries inside one generation")
}

type fakeChatModel struct {
	reply string
	err   error
	input []*schema.Message
}

func (m *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.input = input
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func TestArkGenerate(t *testing.T) {
	m := &fakeChatModel{reply: "valley\necho"}
	svc := NewArkServiceWithModel(m)

	text, err := svc.Generate(context.Background(), []string{"valley", "echo"})
	require.NoError(t, err)
	assert.Equal(t, "valley\necho", text)
	require.Len(t, m.input, 2)
	assert.Equal(t, schema.System, m.input[0].Role)
	assert.Contains(t, m.input[1].Content, "valley, echo")

	m.reply = "   "
	_, err = svc.Generate(context.Background(), []string{"echo"})
	assert.Error(t, err)

	m.err = errors.New("timeout")
	_, err = svc.Generate(context.Background(), []string{"echo"})
	assert.Error(t, err)
}
