package printpal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/printpal-io/printpal-go/internal/fileutil"
)

// GetDownloadInfo requests a presigned download handle for a completed
// generation. Handles expire (nominally after one hour); request a new one
// rather than caching it. A generation that has not completed yields a
// KindValidation error.
func (c *Client) GetDownloadInfo(ctx context.Context, uid string) (*DownloadInfo, error) {
	path, err := generationPath(uid, "download")
	if err != nil {
		return nil, err
	}
	data, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	info := parseDownloadInfo(data)
	if info.Status != "" && info.Status != StatusCompleted {
		return nil, &Error{
			Kind:          KindValidation,
			Message:       fmt.Sprintf("generation is not completed (status: %s)", info.Status),
			GenerationUID: uid,
			Response:      data,
		}
	}
	if info.DownloadURL == "" {
		return nil, &Error{
			Kind:          KindGeneration,
			Message:       "no download URL available",
			GenerationUID: uid,
			Response:      data,
		}
	}
	format, err := ParseFormat(info.Format)
	if err != nil {
		return nil, &Error{
			Kind:          KindGeneration,
			Message:       fmt.Sprintf("service reported unsupported model format %q", info.Format),
			GenerationUID: uid,
			Response:      data,
		}
	}
	info.Format = string(format)
	return &info, nil
}

// Download saves a completed model and returns the path written.
//
// An empty outputPath writes printpal_model_<uid prefix>.<format> in the
// working directory; an existing directory, or a path ending in a separator,
// receives that name inside it. When the caller's extension disagrees with
// the format the service reports, the extension is replaced (and a warning
// logged) so a file is never mislabeled.
func (c *Client) Download(ctx context.Context, uid, outputPath string) (string, error) {
	info, err := c.GetDownloadInfo(ctx, uid)
	if err != nil {
		return "", err
	}
	target := c.resolveOutputPath(uid, outputPath, info.Format)

	written, err := c.fetchArtifact(ctx, info.DownloadURL, target)
	if err != nil {
		return "", err
	}
	c.logger.Info("downloaded model",
		"generation_uid", uid,
		"path", target,
		"format", info.Format,
		"bytes", written,
	)
	return target, nil
}

// WaitAndDownload waits for the generation to complete and downloads it.
func (c *Client) WaitAndDownload(ctx context.Context, uid, outputPath string, opts WaitOptions) (string, error) {
	if _, err := c.WaitForCompletion(ctx, uid, opts); err != nil {
		return "", err
	}
	return c.Download(ctx, uid, outputPath)
}

// GenerateAndDownload submits an image, waits for the model and saves it.
// When req.Format is empty the format is inferred from outputPath's extension.
func (c *Client) GenerateAndDownload(ctx context.Context, imagePath, outputPath string, req GenerationRequest, opts WaitOptions) (string, error) {
	if req.Format == "" {
		req.Format = FormatFromPath(outputPath)
	}
	result, err := c.GenerateFromImage(ctx, imagePath, req)
	if err != nil {
		return "", err
	}
	return c.WaitAndDownload(ctx, result.GenerationUID, outputPath, opts)
}

// fetchArtifact streams the presigned URL to target. The API key is not sent
// to the storage host.
func (c *Client) fetchArtifact(ctx context.Context, downloadURL, target string) (int64, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return 0, fmt.Errorf("printpal: build download request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, classifyRequestError(ctx, "model download", c.downloadTimeout, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		kind := KindTransport
		if resp.StatusCode >= http.StatusInternalServerError {
			kind = KindServer
		}
		return 0, &Error{
			Kind:       kind,
			StatusCode: resp.StatusCode,
			Message:    "failed to download model: " + strings.TrimSpace(string(body)),
		}
	}

	written, err := fileutil.WriteAtomic(target, resp.Body, 0o644)
	if err != nil {
		if ctx.Err() == nil && reqCtx.Err() != nil {
			return 0, &Error{
				Kind:    KindTimeout,
				Message: fmt.Sprintf("model download timed out after %s", c.downloadTimeout),
				Err:     err,
			}
		}
		return 0, fmt.Errorf("printpal: save model: %w", err)
	}
	return written, nil
}

func (c *Client) resolveOutputPath(uid, outputPath, format string) string {
	format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	outputPath = strings.TrimSpace(outputPath)

	if outputPath == "" {
		return defaultModelName(uid, format)
	}
	if strings.HasSuffix(outputPath, "/") || strings.HasSuffix(outputPath, string(filepath.Separator)) {
		return filepath.Join(outputPath, defaultModelName(uid, format))
	}
	if info, err := os.Stat(outputPath); err == nil && info.IsDir() {
		return filepath.Join(outputPath, defaultModelName(uid, format))
	}

	current := filepath.Ext(outputPath)
	switch {
	case strings.EqualFold(strings.TrimPrefix(current, "."), format):
		return outputPath
	case current == "":
		return outputPath + "." + format
	default:
		corrected := strings.TrimSuffix(outputPath, current) + "." + format
		c.logger.Warn("output extension does not match model format",
			"generation_uid", uid,
			"requested", outputPath,
			"format", format,
			"path", corrected,
		)
		return corrected
	}
}

func defaultModelName(uid, format string) string {
	prefix := strings.TrimSpace(uid)
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("printpal_model_%s.%s", prefix, format)
}
