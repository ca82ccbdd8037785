package classifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/noah-isme/classroom-quest-api/pkg/config"
	"github.com/noah-isme/classroom-quest-api/pkg/storage"
)

// Thumbnail dimensions (16:9).
const (
	ThumbnailWidth  = 640
	ThumbnailHeight = 360
)

var errNoImage = errors.New("model returned no image")

// ThumbnailGenerator requests an illustration from the image model, stores it and returns a
// signed link to it.
type ThumbnailGenerator struct {
	httpClient *http.Client
	endpoint   string
	model      string
	apiKey     string
	store      *storage.LocalStorage
	signer     *storage.SignedURLSigner
	linkPrefix string
}

// NewThumbnailGenerator wires the image model endpoint to thumbnail storage. linkPrefix is
// prepended to signed tokens, e.g. "/api/v1/thumbnails/".
func NewThumbnailGenerator(cfg config.ClassifierConfig, httpClient *http.Client, store *storage.LocalStorage, signer *storage.SignedURLSigner, linkPrefix string) *ThumbnailGenerator {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &ThumbnailGenerator{
		httpClient: httpClient,
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		model:      cfg.ImageModel,
		apiKey:     cfg.APIKey,
		store:      store,
		signer:     signer,
		linkPrefix: linkPrefix,
	}
}

type generateImageRequest struct {
	Contents         []imageContent        `json:"contents"`
	GenerationConfig imageGenerationConfig `json:"generationConfig"`
}

type imageContent struct {
	Parts []imagePart `json:"parts"`
}

type imagePart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type imageGenerationConfig struct {
	ResponseModalities []string    `json:"responseModalities"`
	ImageConfig        imageConfig `json:"imageConfig"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio"`
}

type generateImageResponse struct {
	Candidates []struct {
		Content imageContent `json:"content"`
	} `json:"candidates"`
}

// Generate produces, stores and signs a thumbnail for the prompt.
func (g *ThumbnailGenerator) Generate(ctx context.Context, tenantID, prompt string) (string, error) {
	raw, err := g.requestImage(ctx, prompt)
	if err != nil {
		return "", err
	}

	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("decode thumbnail: %w", err)
	}
	img = imaging.Fill(img, ThumbnailWidth, ThumbnailHeight, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("encode thumbnail: %w", err)
	}

	name, err := g.store.Save(fmt.Sprintf("%s/%s.png", assetDir(tenantID), uuid.NewString()), buf.Bytes())
	if err != nil {
		return "", err
	}
	return g.LinkFor(name)
}

// LinkFor signs a fresh link to a stored thumbnail asset.
func (g *ThumbnailGenerator) LinkFor(asset string) (string, error) {
	if !isAsset(asset) {
		return "", fmt.Errorf("%w: not a thumbnail asset", storage.ErrInvalidSignature)
	}
	token, _, err := g.signer.Generate(strings.TrimSuffix(path.Base(asset), ".png"), asset)
	if err != nil {
		return "", fmt.Errorf("sign thumbnail: %w", err)
	}
	return g.linkPrefix + token, nil
}

// AssetFromLink resolves a link produced by Generate for tenantID to its stored asset. Expired
// links still resolve so a preview can be attached to a lesson after its link lapsed.
func (g *ThumbnailGenerator) AssetFromLink(tenantID, link string) (string, bool) {
	if !strings.HasPrefix(link, g.linkPrefix) {
		return "", false
	}
	_, asset, _, err := g.signer.Parse(strings.TrimPrefix(link, g.linkPrefix), true)
	if err != nil || !isAsset(asset) || !strings.HasPrefix(asset, assetDir(tenantID)+"/") {
		return "", false
	}
	return asset, true
}

func (g *ThumbnailGenerator) requestImage(ctx context.Context, prompt string) ([]byte, error) {
	body, err := json.Marshal(generateImageRequest{
		Contents: []imageContent{{Parts: []imagePart{{Text: prompt}}}},
		GenerationConfig: imageGenerationConfig{
			ResponseModalities: []string{"IMAGE"},
			ImageConfig:        imageConfig{AspectRatio: "16:9"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode image request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.endpoint, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call image model: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("image model status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded generateImageResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode image response: %w", err)
	}
	for _, candidate := range decoded.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					return nil, fmt.Errorf("decode inline image: %w", err)
				}
				return data, nil
			}
		}
	}
	return nil, errNoImage
}

// Open resolves a signed token to the stored image.
func (g *ThumbnailGenerator) Open(token string) (*os.File, error) {
	_, asset, _, err := g.signer.Parse(token, false)
	if err != nil {
		return nil, err
	}
	return g.store.Open(asset)
}

// Remove deletes a stored thumbnail given a link produced by Generate, expired or not, or an
// asset returned by AssetFromLink.
func (g *ThumbnailGenerator) Remove(ref string) error {
	asset := ref
	if strings.HasPrefix(ref, g.linkPrefix) {
		_, parsed, _, err := g.signer.Parse(strings.TrimPrefix(ref, g.linkPrefix), true)
		if err != nil {
			return err
		}
		asset = parsed
	} else if !isAsset(ref) {
		return fmt.Errorf("%w: not a generated thumbnail", storage.ErrInvalidSignature)
	}
	return g.store.Delete(asset)
}

// isAsset accepts "<tenant dir>/<uuid>.png" names as written by Generate.
func isAsset(name string) bool {
	dir, file, ok := strings.Cut(name, "/")
	if !ok || dir == "" || strings.Contains(file, "/") || !strings.HasSuffix(file, ".png") {
		return false
	}
	_, err := uuid.Parse(strings.TrimSuffix(file, ".png"))
	return err == nil
}

// assetDir maps a tenant to a filesystem safe directory name.
func assetDir(tenantID string) string {
	if tenantID == "" {
		return "shared"
	}
	return base64.RawURLEncoding.EncodeToString([]byte(tenantID))
}
