package printpal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

const generatePath = "/api/generate"

// GenerateFromImage submits the image at imagePath for generation. The request
// is validated before the file is opened and the file is closed before
// returning, whatever the outcome.
func (c *Client) GenerateFromImage(ctx context.Context, imagePath string, req GenerationRequest) (*GenerationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	file, err := os.Open(imagePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newValidationError("image file not found: %s", imagePath)
		}
		return nil, fmt.Errorf("printpal: open image: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("printpal: stat image: %w", err)
	}
	if info.IsDir() {
		return nil, newValidationError("image path is a directory: %s", imagePath)
	}
	return c.submitImage(ctx, file, filepath.Base(imagePath), req)
}

// GenerateFromImageReader submits image data read from r. The caller owns r.
func (c *Client) GenerateFromImageReader(ctx context.Context, r io.Reader, filename string, req GenerationRequest) (*GenerationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, newValidationError("image reader is nil")
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		filename = "image.png"
	}
	return c.submitImage(ctx, r, filename, req)
}

// GenerateFromPrompt submits a text description for generation. Text input is
// only available for the default, high and ultra tiers.
func (c *Client) GenerateFromPrompt(ctx context.Context, prompt string, req GenerationRequest) (*GenerationResult, error) {
	if q, err := ParseQuality(string(req.Quality)); err == nil && q.IsSuper() {
		return nil, newValidationError("text-to-3D is not supported for %s quality; use GenerateFromImage instead", q)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, newValidationError("prompt cannot be empty")
	}

	payload, err := json.Marshal(promptRequest{
		Prompt:            prompt,
		Quality:           string(req.Quality),
		Format:            string(req.Format),
		NumInferenceSteps: req.NumInferenceSteps,
		GuidanceScale:     req.GuidanceScale,
		OctreeResolution:  req.OctreeResolution,
	})
	if err != nil {
		return nil, fmt.Errorf("printpal: encode prompt request: %w", err)
	}

	data, err := c.do(ctx, apiRequest{
		method:      http.MethodPost,
		path:        generatePath,
		body:        bytes.NewReader(payload),
		contentType: "application/json",
		timeout:     c.uploadTimeout,
	})
	if err != nil {
		return nil, err
	}
	result := parseGenerationResult(data)
	c.logger.Info("generation submitted",
		"generation_uid", result.GenerationUID,
		"input", "prompt",
		"quality", req.Quality,
		"credits_used", result.CreditsUsed,
	)
	return &result, nil
}

type promptRequest struct {
	Prompt            string  `json:"prompt"`
	Quality           string  `json:"quality"`
	Format            string  `json:"format"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale"`
	OctreeResolution  int     `json:"octree_resolution"`
}

// submitImage streams a multipart body through a pipe so large images are
// never buffered in memory.
func (c *Client) submitImage(ctx context.Context, image io.Reader, filename string, req GenerationRequest) (*GenerationResult, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	done := make(chan struct{})
	go func() {
		defer close(done)
		pw.CloseWithError(writeImageForm(mw, req.formFields(), filename, image))
	}()

	data, err := c.do(ctx, apiRequest{
		method:      http.MethodPost,
		path:        generatePath,
		body:        pr,
		contentType: mw.FormDataContentType(),
		timeout:     c.uploadTimeout,
	})
	_ = pr.Close()
	<-done
	if err != nil {
		return nil, err
	}

	result := parseGenerationResult(data)
	c.logger.Info("generation submitted",
		"generation_uid", result.GenerationUID,
		"input", "image",
		"image", filename,
		"quality", req.Quality,
		"credits_used", result.CreditsUsed,
	)
	return &result, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeImageForm(mw *multipart.Writer, fields [][2]string, filename string, image io.Reader) error {
	for _, field := range fields {
		if err := mw.WriteField(field[0], field[1]); err != nil {
			return fmt.Errorf("write field %s: %w", field[0], err)
		}
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, quoteEscaper.Replace(filename)))
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create image part: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return fmt.Errorf("copy image: %w", err)
	}
	return mw.Close()
}
