package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"studytec-client/internal/domain"
	"studytec-client/internal/validator"
)

const (
	DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"
	DefaultModel    = "gemini-2.5-flash-preview-09-2025"
)

// Client calls a generateContent-style endpoint and turns the first
// candidate into a validated artifact.
type Client struct {
	http     *http.Client
	endpoint string
	model    string
	validate *validator.Validator
}

func NewClient(httpClient *http.Client, endpoint, model string, v *validator.Validator) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if model == "" {
		model = DefaultModel
	}
	if v == nil {
		v = validator.New()
	}
	return &Client{
		http:     httpClient,
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		validate: v,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate requests an artifact for topic using apiKey as the credential.
// Every failure wraps domain.ErrGeneration.
func (c *Client) Generate(ctx context.Context, topic, apiKey string) (domain.Artifact, error) {
	text, err := c.complete(ctx, BuildPrompt(topic), apiKey)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}
	artifact, err := ParseArtifact(c.validate, text)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}
	return artifact, nil
}

func (c *Client) complete(ctx context.Context, prompt, apiKey string) (string, error) {
	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?%s", c.endpoint, c.model, url.Values{"key": {apiKey}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// url.Error would echo the key back in the message.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return "", fmt.Errorf("generate content: %w", uerr.Err)
		}
		return "", fmt.Errorf("generate content: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read completion: %w", err)
	}

	var parsed generateResponse
	decodeErr := json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rej := &domain.RejectionError{Status: resp.StatusCode}
		if decodeErr == nil && parsed.Error != nil {
			rej.Message = parsed.Error.Message
		}
		return "", rej
	}
	if decodeErr != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMalformed, decodeErr)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no candidate text", domain.ErrMalformed)
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
