// Package backend is the HTTP client for the translation server: page erase,
// translate after erase, batch chapter translation and chapter fetch.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/inkwash-dev/inkwash/internal/batch"
	"github.com/inkwash-dev/inkwash/internal/models"
)

const DefaultTimeout = 120 * time.Second

// APIError is a non-2xx response from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

// ErrorKind classifies the error for the HTTP adapter
func (e *APIError) ErrorKind() string {
	if e.StatusCode == http.StatusNotFound {
		return "not_found"
	}
	return "upstream"
}

// IsNotFound reports whether err is a 404 from the server
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client talks to the translation server
type Client struct {
	BaseURL    string
	APIKey     string
	httpClient *http.Client
}

// NewClient creates a new backend client. A zero timeout uses DefaultTimeout.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ErasePage uploads the binary mask and returns the erased image reference
func (c *Client) ErasePage(ctx context.Context, pageID string, maskPNG []byte) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("mask", "mask.png")
	if err != nil {
		return "", fmt.Errorf("failed to create mask part: %w", err)
	}
	if _, err := part.Write(maskPNG); err != nil {
		return "", fmt.Errorf("failed to write mask part: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finish multipart body: %w", err)
	}

	var resp struct {
		ErasedImageURL string `json:"erased_image_url"`
	}
	path := fmt.Sprintf("/api/pages/%s/erase", url.PathEscape(pageID))
	if err := c.do(ctx, http.MethodPost, path, w.FormDataContentType(), &body, &resp); err != nil {
		return "", fmt.Errorf("failed to erase page %s: %w", pageID, err)
	}
	if resp.ErasedImageURL == "" {
		return "", fmt.Errorf("erase response for page %s has no image", pageID)
	}
	return resp.ErasedImageURL, nil
}

// TranslateErasedPage translates a page using its stored erased image
func (c *Client) TranslateErasedPage(ctx context.Context, pageID string) (string, error) {
	var resp struct {
		TranslatedImageURL string `json:"translated_image_url"`
	}
	path := fmt.Sprintf("/api/pages/%s/translate", url.PathEscape(pageID))
	if err := c.do(ctx, http.MethodPost, path, "", nil, &resp); err != nil {
		return "", fmt.Errorf("failed to translate page %s: %w", pageID, err)
	}
	if resp.TranslatedImageURL == "" {
		return "", fmt.Errorf("translate response for page %s has no image", pageID)
	}
	return resp.TranslatedImageURL, nil
}

// TranslateChapter submits the chapter to the automatic pipeline. The server only acknowledges.
func (c *Client) TranslateChapter(ctx context.Context, req batch.Request) error {
	payload, err := json.Marshal(struct {
		TargetLanguage string `json:"target_language,omitempty"`
		Force          bool   `json:"force"`
	}{req.TargetLanguage, req.Force})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	path := fmt.Sprintf("/api/chapters/%s/translate", url.PathEscape(req.ChapterID))
	if err := c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(payload), nil); err != nil {
		return fmt.Errorf("failed to submit chapter %s: %w", req.ChapterID, err)
	}
	return nil
}

// FetchChapter returns the chapter with its ordered pages
func (c *Client) FetchChapter(ctx context.Context, chapterID string) (*models.Chapter, error) {
	var chapter models.Chapter
	path := fmt.Sprintf("/api/chapters/%s", url.PathEscape(chapterID))
	if err := c.do(ctx, http.MethodGet, path, "", nil, &chapter); err != nil {
		return nil, fmt.Errorf("failed to fetch chapter %s: %w", chapterID, err)
	}
	if chapter.ID == "" {
		chapter.ID = chapterID
	}
	for i := range chapter.Pages {
		if chapter.Pages[i].ChapterID == "" {
			chapter.Pages[i].ChapterID = chapter.ID
		}
	}
	return &chapter, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorMessage pulls a message out of a JSON error body, falling back to the raw text
func errorMessage(data []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if json.Unmarshal(data, &body) == nil {
		for _, msg := range []string{body.Error, body.Message, body.Detail} {
			if msg != "" {
				return msg
			}
		}
	}
	return strings.TrimSpace(string(data))
}
