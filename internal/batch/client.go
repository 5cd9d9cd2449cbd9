package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	// ErrSubmission covers transport failures and malformed provider envelopes
	// during batch submission.
	ErrSubmission = errors.New("batch submission failed")

	// ErrTimeout is returned when the provider does not deliver the result
	// before the poll timeout elapses.
	ErrTimeout = errors.New("timeout waiting for batch result")
)

// Client talks to the batch data provider: it submits a dataset request,
// polls for the result and unpacks the delivered archive into the staging
// directory. It never deletes previously staged files; that is the caller's
// responsibility.
type Client struct {
	apiKey     string
	sendURL    string
	getURL     string
	stagingDir string
	http       *http.Client
}

// NewClient creates a batch provider client writing extracted files to stagingDir.
func NewClient(apiKey, sendURL, getURL, stagingDir string) *Client {
	return &Client{
		apiKey:     apiKey,
		sendURL:    sendURL,
		getURL:     getURL,
		stagingDir: stagingDir,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// submitResponse is the provider's envelope for an accepted batch request.
type submitResponse struct {
	Token string `json:"token"`
}

// Submit uploads the batch descriptor file at batchPath and returns the job
// token used to poll for the result.
func (c *Client) Submit(ctx context.Context, batchPath string) (string, error) {
	logger := log.With().
		Str("service", "batch").
		Str("batch_file", filepath.Base(batchPath)).
		Logger()

	f, err := os.Open(batchPath)
	if err != nil {
		return "", fmt.Errorf("%w: open descriptor: %v", ErrSubmission, err)
	}
	defer f.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("batchfile", filepath.Base(batchPath))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	if err := w.WriteField("apikey", c.apiKey); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	if err := w.WriteField("format", "json"); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmission, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sendURL, &body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: provider returned status %d", ErrSubmission, resp.StatusCode)
	}

	var sr submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("%w: malformed response: %v", ErrSubmission, err)
	}
	if sr.Token == "" {
		return "", fmt.Errorf("%w: response missing token", ErrSubmission)
	}

	logger.Info().Str("token", sr.Token).Msg("batch request accepted")
	return sr.Token, nil
}

// AwaitResult polls the provider at fixed intervals until the result archive
// is delivered, then extracts all non-manifest entries into the staging
// directory and returns their paths. The poll loop is the retry mechanism: a
// still-processing response simply means wait and re-poll. The elapsed-time
// check happens before each re-poll, so a result delivered exactly at the
// deadline is still accepted.
func (c *Client) AwaitResult(ctx context.Context, token string, pollInterval, timeout time.Duration) ([]string, error) {
	logger := log.With().
		Str("service", "batch").
		Str("token", token).
		Logger()

	start := time.Now()
	for {
		payload, contentType, err := c.poll(ctx, token)
		if err != nil {
			return nil, err
		}

		if isArchive(contentType, payload) {
			files, err := c.extract(payload)
			if err != nil {
				return nil, err
			}
			logger.Info().
				Int("files", len(files)).
				Dur("elapsed", time.Since(start)).
				Msg("batch result delivered")
			return files, nil
		}

		if time.Since(start) > timeout {
			return nil, fmt.Errorf("%w: token %s after %s", ErrTimeout, token, timeout)
		}

		logger.Debug().
			Dur("elapsed", time.Since(start)).
			Msg("batch still processing")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (c *Client) poll(ctx context.Context, token string) ([]byte, string, error) {
	form := strings.NewReader(fmt.Sprintf("apikey=%s&token=%s", c.apiKey, token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.getURL, form)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return payload, resp.Header.Get("Content-Type"), nil
}

// isArchive recognizes a completed batch by its content type and zip signature.
// A still-processing response is a JSON status document instead.
func isArchive(contentType string, payload []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "application/json") {
		return false
	}
	return len(payload) >= 2 && payload[0] == 'P' && payload[1] == 'K'
}
