package provider

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"

	"lookgen-gateway/internal/apperr"
)

const (
	finishStop      = "STOP"
	defaultMimeType = "image/webp"
)

// ParseImageResponse interprets a generateContent body. A top-level block
// signal is AI_BLOCKED; candidates without inline data are AI_NO_IMAGE; the
// two are never conflated.
func ParseImageResponse(body []byte) (*Image, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, apperr.EmptyResponse()
	}

	var resp generateContentResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, apperr.Internal("decode generation response", err)
	}

	var pf promptFeedback
	if len(resp.PromptFeedback) > 0 && !isJSONNull(resp.PromptFeedback) {
		_ = json.Unmarshal(resp.PromptFeedback, &pf)
	}
	if pf.BlockReason != "" {
		msg := []string{"Gemini declined the request", "(" + strings.ToLower(pf.BlockReason) + ")"}
		if pf.BlockReasonMessage != "" {
			msg = append(msg, pf.BlockReasonMessage)
		}
		return nil, apperr.Blocked(strings.Join(msg, " ")).
			WithDetail("promptFeedback", resp.PromptFeedback)
	}

	cand := pickCandidate(resp.Candidates)
	var fb Feedback
	if !isJSONNull(resp.PromptFeedback) {
		fb.PromptFeedback = resp.PromptFeedback
	}
	var inline *inlineData
	if cand != nil {
		fb.FinishReason = cand.FinishReason
		fb.SafetyRatings = cand.SafetyRatings
		fb.Text = collectText(cand)
		inline = firstInline(cand)
	}

	if inline == nil {
		msg := []string{"Gemini did not return an image."}
		if fb.FinishReason != "" && fb.FinishReason != finishStop {
			msg = append(msg, "Finish reason: "+fb.FinishReason+".")
		}
		if fb.Text != "" {
			msg = append(msg, "Model reply: "+fb.Text)
		}
		e := apperr.NoImage(strings.Join(msg, " "))
		if fb.FinishReason != "" {
			e.WithDetail("finishReason", fb.FinishReason)
		}
		if fb.Text != "" {
			e.WithDetail("text", fb.Text)
		}
		if len(fb.SafetyRatings) > 0 {
			e.WithDetail("safetyRatings", fb.SafetyRatings)
		}
		return nil, e
	}

	data, err := base64.StdEncoding.DecodeString(inline.Data)
	if err != nil {
		return nil, apperr.Internal("decode image payload", err)
	}
	mimeType := inline.MimeType
	if mimeType == "" {
		mimeType = defaultMimeType
	}
	return &Image{Data: data, MimeType: mimeType, Feedback: fb}, nil
}

// Summary renders the non-nominal parts of the feedback for logs, e.g.
// "finish: max_tokens | block: safety". Empty when there is nothing notable.
func (f Feedback) Summary() string {
	var parts []string
	if f.FinishReason != "" && f.FinishReason != finishStop {
		parts = append(parts, "finish: "+strings.ToLower(f.FinishReason))
	}
	if len(f.PromptFeedback) > 0 {
		var pf promptFeedback
		if err := json.Unmarshal(f.PromptFeedback, &pf); err == nil && pf.BlockReason != "" {
			parts = append(parts, "block: "+strings.ToLower(pf.BlockReason))
		}
	}
	return strings.Join(parts, " | ")
}

func pickCandidate(cands []candidate) *candidate {
	for i := range cands {
		if firstInline(&cands[i]) != nil {
			return &cands[i]
		}
	}
	if len(cands) > 0 {
		return &cands[0]
	}
	return nil
}

func firstInline(c *candidate) *inlineData {
	if c == nil || c.Content == nil {
		return nil
	}
	for _, p := range c.Content.Parts {
		if p.InlineData != nil && p.InlineData.Data != "" {
			return p.InlineData
		}
	}
	return nil
}

func collectText(c *candidate) string {
	if c.Content == nil {
		return ""
	}
	var texts []string
	for _, p := range c.Content.Parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.TrimSpace(strings.Join(texts, " "))
}

func isJSONNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
