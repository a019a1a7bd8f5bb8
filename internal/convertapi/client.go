// Package convertapi is a minimal client for the ConvertAPI HEIC to PDF endpoint.
package convertapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

var ErrNoOutput = errors.New("convertapi returned no files")

type Client struct {
	baseURL    string
	secret     string
	httpClient *http.Client
}

func New(baseURL, secret string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secret:     secret,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type convertResponse struct {
	ConversionCost int `json:"ConversionCost"`
	Files          []struct {
		FileName string `json:"FileName"`
		FileExt  string `json:"FileExt"`
		FileSize int64  `json:"FileSize"`
		FileData string `json:"FileData"`
	} `json:"Files"`
}

type errorResponse struct {
	Code    int    `json:"Code"`
	Message string `json:"Message"`
}

// ConvertHEICToPDF uploads the image and returns the PDF bytes.
func (c *Client) ConvertHEICToPDF(ctx context.Context, filename string, r io.Reader) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("File", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("copy upload: %w", err)
	}
	if err := mw.WriteField("StoreFile", "false"); err != nil {
		return nil, fmt.Errorf("write form field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/convert/heic/to/pdf", &body)
	if err != nil {
		return nil, fmt.Errorf("build convert request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call convertapi: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("convertapi status %d: %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("convertapi status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out convertResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode convertapi response: %w", err)
	}
	if len(out.Files) == 0 || out.Files[0].FileData == "" {
		return nil, ErrNoOutput
	}
	pdf, err := base64.StdEncoding.DecodeString(out.Files[0].FileData)
	if err != nil {
		return nil, fmt.Errorf("decode convertapi file data: %w", err)
	}
	return pdf, nil
}
