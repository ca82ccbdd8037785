package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-quest-api/pkg/config"
)

// Call kinds reported to the metrics recorder.
const (
	KindComment   = "comment"
	KindImage     = "image"
	KindThumbnail = "thumbnail"
	KindPraise    = "praise"
)

// Call outcomes reported to the metrics recorder.
const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
	OutcomeDisabled = "disabled"
)

// Generator is the subset of llms.Model the classifier relies on.
type Generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Recorder receives one observation per classifier call.
type Recorder interface {
	ObserveClassifierCall(kind, outcome string, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveClassifierCall(string, string, time.Duration) {}

// CommentAnalysis is the verdict on a reflection comment.
type CommentAnalysis struct {
	IsValid  bool   `json:"isValid"`
	Score    int    `json:"score"`
	Reason   string `json:"reason"`
	Fallback bool   `json:"-"`
}

// ImageVerification is the verdict on a challenge proof image.
type ImageVerification struct {
	IsValid  bool   `json:"isValid"`
	Reason   string `json:"reason"`
	Fallback bool   `json:"-"`
}

// Client talks to the external generative model. A Client without a generator answers every
// call from its deterministic fallbacks.
type Client struct {
	llm         Generator
	textModel   string
	visionModel string
	timeout     time.Duration
	maxImageDim int
	thumbnails  *ThumbnailGenerator
	metrics     Recorder
	logger      *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithGenerator sets the model backend.
func WithGenerator(llm Generator) Option {
	return func(c *Client) { c.llm = llm }
}

// WithThumbnails enables lesson thumbnail generation.
func WithThumbnails(t *ThumbnailGenerator) Option {
	return func(c *Client) { c.thumbnails = t }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.metrics = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a classifier from configuration.
func NewClient(cfg config.ClassifierConfig, opts ...Option) *Client {
	c := &Client{
		textModel:   cfg.TextModel,
		visionModel: cfg.VisionModel,
		timeout:     cfg.Timeout,
		maxImageDim: cfg.MaxImageDimension,
		metrics:     nopRecorder{},
		logger:      zap.NewNop(),
	}
	if c.timeout <= 0 {
		c.timeout = 20 * time.Second
	}
	if c.maxImageDim <= 0 {
		c.maxImageDim = 1024
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewGoogleGenerator builds the Gemini backed generator.
func NewGoogleGenerator(ctx context.Context, cfg config.ClassifierConfig) (Generator, error) {
	llm, err := googleai.New(ctx, googleai.WithAPIKey(cfg.APIKey), googleai.WithDefaultModel(cfg.TextModel))
	if err != nil {
		return nil, fmt.Errorf("create googleai client: %w", err)
	}
	return llm, nil
}

// Enabled reports whether a model backend is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.llm != nil
}

// AnalyzeComment grades a lesson comment. Failures fall back to a length heuristic.
func (c *Client) AnalyzeComment(ctx context.Context, text string) CommentAnalysis {
	start := time.Now()
	if !c.Enabled() {
		c.observe(KindComment, OutcomeDisabled, start)
		return fallbackComment(text)
	}

	raw, err := c.generate(ctx, c.textModel, llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf(commentPrompt, text)))
	if err != nil {
		c.logger.Warn("comment analysis failed, using fallback", zap.Error(err))
		c.observe(KindComment, OutcomeFallback, start)
		return fallbackComment(text)
	}

	analysis, err := parseCommentAnalysis(raw)
	if err != nil {
		c.logger.Warn("comment analysis unparsable, using fallback", zap.Error(err), zap.String("raw", raw))
		c.observe(KindComment, OutcomeFallback, start)
		return fallbackComment(text)
	}

	c.observe(KindComment, OutcomeOK, start)
	return analysis
}

// VerifyChallengeImage checks a proof photo against the challenge title. Failures accept the proof.
func (c *Client) VerifyChallengeImage(ctx context.Context, image []byte, challengeTitle string) ImageVerification {
	start := time.Now()
	if !c.Enabled() {
		c.observe(KindImage, OutcomeDisabled, start)
		return fallbackImage()
	}

	data, mimeType := downscale(image, c.maxImageDim)
	message := llms.MessageContent{
		Role: llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{
			llms.BinaryPart(mimeType, data),
			llms.TextPart(fmt.Sprintf(imagePrompt, challengeTitle)),
		},
	}

	raw, err := c.generate(ctx, c.visionModel, message)
	if err != nil {
		c.logger.Warn("image verification failed, accepting proof", zap.Error(err))
		c.observe(KindImage, OutcomeFallback, start)
		return fallbackImage()
	}

	verdict, err := parseImageVerification(raw)
	if err != nil {
		c.logger.Warn("image verification unparsable, accepting proof", zap.Error(err), zap.String("raw", raw))
		c.observe(KindImage, OutcomeFallback, start)
		return fallbackImage()
	}

	c.observe(KindImage, OutcomeOK, start)
	return verdict
}

// GenerateClassThumbnail returns a link to a generated lesson illustration, or "" when none
// could be produced.
func (c *Client) GenerateClassThumbnail(ctx context.Context, tenantID, topic string) string {
	if c == nil {
		return ""
	}
	start := time.Now()
	if c.thumbnails == nil {
		c.observe(KindThumbnail, OutcomeDisabled, start)
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	link, err := c.thumbnails.Generate(ctx, tenantID, fmt.Sprintf(thumbnailPrompt, topic))
	if err != nil {
		c.logger.Warn("thumbnail generation failed", zap.Error(err), zap.String("topic", topic))
		c.observe(KindThumbnail, OutcomeFallback, start)
		return ""
	}

	c.observe(KindThumbnail, OutcomeOK, start)
	return link
}

// GeneratePraise writes a one sentence encouragement for a point award.
func (c *Client) GeneratePraise(ctx context.Context, studentName, reason string, points int) string {
	start := time.Now()
	if !c.Enabled() {
		c.observe(KindPraise, OutcomeDisabled, start)
		return "Good job!"
	}

	raw, err := c.generate(ctx, c.textModel, llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf(praisePrompt, studentName, points, reason)))
	if err != nil {
		c.logger.Warn("praise generation failed", zap.Error(err))
		c.observe(KindPraise, OutcomeFallback, start)
		return fmt.Sprintf("Well done, %s!", studentName)
	}

	c.observe(KindPraise, OutcomeOK, start)
	praise := strings.Trim(strings.TrimSpace(raw), `"`)
	if praise == "" {
		return fmt.Sprintf("Great work, %s!", studentName)
	}
	return praise
}

func (c *Client) generate(ctx context.Context, model string, message llms.MessageContent) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var opts []llms.CallOption
	if model != "" {
		opts = append(opts, llms.WithModel(model))
	}
	resp, err := c.llm.GenerateContent(ctx, []llms.MessageContent{message}, opts...)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", fmt.Errorf("empty model response")
	}
	return resp.Choices[0].Content, nil
}

func (c *Client) observe(kind, outcome string, start time.Time) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.ObserveClassifierCall(kind, outcome, time.Since(start))
}

func fallbackComment(text string) CommentAnalysis {
	length := utf8.RuneCountInString(text)
	score := 2
	if length > 20 {
		score = 3
	}
	return CommentAnalysis{
		IsValid:  length > 5,
		Score:    score,
		Reason:   "AI unavailable; judged by length",
		Fallback: true,
	}
}

func fallbackImage() ImageVerification {
	return ImageVerification{IsValid: true, Reason: "AI unavailable; proof accepted", Fallback: true}
}
