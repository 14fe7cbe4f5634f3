package provider

import (
	"context"
	"encoding/json"
)

// Client generates one image from a prompt and reference images.
type Client interface {
	GenerateImage(ctx context.Context, req *ImageRequest) (*Image, error)
}

type InlineImage struct {
	Data     []byte
	MimeType string
}

type ImageRequest struct {
	Prompt string
	Images []InlineImage
}

type Image struct {
	Data     []byte
	MimeType string
	Feedback Feedback
}

// Feedback is the provider's signal about how it produced a result. It is
// surfaced in job metadata and never affects success.
type Feedback struct {
	FinishReason   string          `json:"finishReason,omitempty"`
	SafetyRatings  json.RawMessage `json:"safetyRatings,omitempty"`
	PromptFeedback json.RawMessage `json:"promptFeedback,omitempty"`
	Text           string          `json:"text,omitempty"`
}

// Wire types for generateContent.

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts,omitempty"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type candidate struct {
	Content       *content        `json:"content,omitempty"`
	FinishReason  string          `json:"finishReason,omitempty"`
	SafetyRatings json.RawMessage `json:"safetyRatings,omitempty"`
}

type promptFeedback struct {
	BlockReason        string `json:"blockReason,omitempty"`
	BlockReasonMessage string `json:"blockReasonMessage,omitempty"`
}

type generateContentResponse struct {
	PromptFeedback json.RawMessage `json:"promptFeedback,omitempty"`
	Candidates     []candidate     `json:"candidates,omitempty"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}
