package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/harborwave/llmkit/pkg/internal/polling"
	"github.com/harborwave/llmkit/pkg/llm"
	"github.com/harborwave/llmkit/pkg/llmerr"
)

// Uploader implements providerutils.GeminiUploader against the Gemini File
// API's two-step resumable protocol (spec.md §6): an initial metadata POST
// that returns an upload session URL, then a second request that uploads
// the bytes and finalizes, followed by polling the returned file resource
// until its processing state leaves PROCESSING.
type Uploader struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// NewUploader builds an Uploader sharing httpClient (or http.DefaultClient
// when nil) against baseURL (the same host the generation client targets).
func NewUploader(httpClient *http.Client, baseURL, apiKey string) *Uploader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Uploader{http: httpClient, baseURL: baseURL, apiKey: apiKey}
}

type fileResource struct {
	Name  string `json:"name"`
	URI   string `json:"uri"`
	State string `json:"state"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload implements providerutils.GeminiUploader.
func (u *Uploader) Upload(kind llm.AttachmentKind, mimeType string, data []byte, filename string) (string, error) {
	ctx := context.Background()

	startReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/upload/v1beta/files?key=%s", u.baseURL, u.apiKey),
		bytes.NewReader(mustMarshal(map[string]interface{}{
			"file": map[string]interface{}{"display_name": filename},
		})))
	if err != nil {
		return "", llmerr.New(llmerr.KindInvalidRequest, "google", "building upload start request", err)
	}
	startReq.Header.Set("Content-Type", "application/json")
	startReq.Header.Set("X-Goog-Upload-Protocol", "resumable")
	startReq.Header.Set("X-Goog-Upload-Command", "start")
	startReq.Header.Set("X-Goog-Upload-Header-Content-Length", strconv.Itoa(len(data)))
	startReq.Header.Set("X-Goog-Upload-Header-Content-Type", mimeType)

	startResp, err := u.http.Do(startReq)
	if err != nil {
		return "", llmerr.FromContext("google", err)
	}
	startResp.Body.Close()
	if startResp.StatusCode >= 400 {
		return "", llmerr.FromHTTPStatus("google", startResp.StatusCode, "", "file upload session start failed")
	}
	uploadURL := startResp.Header.Get("X-Goog-Upload-Url")
	if uploadURL == "" {
		return "", llmerr.New(llmerr.KindParsing, "google", "upload session response missing X-Goog-Upload-Url", nil)
	}

	uploadReq, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", llmerr.New(llmerr.KindInvalidRequest, "google", "building upload finalize request", err)
	}
	uploadReq.Header.Set("Content-Length", strconv.Itoa(len(data)))
	uploadReq.Header.Set("X-Goog-Upload-Offset", "0")
	uploadReq.Header.Set("X-Goog-Upload-Command", "upload, finalize")

	uploadResp, err := u.http.Do(uploadReq)
	if err != nil {
		return "", llmerr.FromContext("google", err)
	}
	defer uploadResp.Body.Close()
	if uploadResp.StatusCode >= 400 {
		return "", llmerr.FromHTTPStatus("google", uploadResp.StatusCode, "", "file upload finalize failed")
	}

	var result struct {
		File fileResource `json:"file"`
	}
	if err := json.NewDecoder(uploadResp.Body).Decode(&result); err != nil {
		return "", llmerr.New(llmerr.KindParsing, "google", "decoding file upload response", err)
	}

	return u.waitUntilActive(ctx, result.File)
}

func (u *Uploader) waitUntilActive(ctx context.Context, f fileResource) (string, error) {
	if f.State == "ACTIVE" {
		return f.URI, nil
	}

	result, err := polling.PollForCompletion(ctx, func(ctx context.Context) (*polling.JobResult, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			fmt.Sprintf("%s/v1beta/%s?key=%s", u.baseURL, f.Name, u.apiKey), nil)
		if err != nil {
			return nil, err
		}
		resp, err := u.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		var cur fileResource
		if err := json.NewDecoder(resp.Body).Decode(&cur); err != nil {
			return nil, err
		}
		switch cur.State {
		case "ACTIVE":
			return &polling.JobResult{Status: polling.JobStatusCompleted, OutputURL: cur.URI}, nil
		case "FAILED":
			return &polling.JobResult{Status: polling.JobStatusFailed, Error: cur.Error.Message}, nil
		default:
			return &polling.JobResult{Status: polling.JobStatusProcessing}, nil
		}
	}, polling.PollOptions{PollIntervalMs: 2000, PollTimeoutMs: 120000})
	if err != nil {
		return "", llmerr.New(llmerr.KindTimeout, "google", "waiting for uploaded file to become ACTIVE", err)
	}
	return result.OutputURL, nil
}

func mustMarshal(v interface{}) []byte {
	b, _ := json.Marshal(v)
	return b
}
