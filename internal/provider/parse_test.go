package provider

import (
	"encoding/base64"
	"strings"
	"testing"

	"lookgen-gateway/internal/apperr"
)

func TestParseImageResponse(t *testing.T) {
	png := base64.StdEncoding.EncodeToString([]byte("png-bytes"))

	cases := []struct {
		name     string
		body     string
		code     apperr.Code
		contains string
	}{
		{name: "empty body", body: "", code: apperr.CodeEmptyResponse},
		{name: "null body", body: "null", code: apperr.CodeEmptyResponse},
		{
			name:     "blocked",
			body:     `{"promptFeedback":{"blockReason":"SAFETY","blockReasonMessage":"unsafe content"},"candidates":[{"content":{"parts":[{"inlineData":{"data":"` + png + `"}}]}}]}`,
			code:     apperr.CodeBlocked,
			contains: "(safety) unsafe content",
		},
		{
			name:     "no image with reason and text",
			body:     `{"candidates":[{"finishReason":"IMAGE_SAFETY","content":{"parts":[{"text":"I cannot"},{"text":"do that"}]}}]}`,
			code:     apperr.CodeNoImage,
			contains: "Finish reason: IMAGE_SAFETY. Model reply: I cannot do that",
		},
		{
			name:     "no candidates",
			body:     `{"candidates":[]}`,
			code:     apperr.CodeNoImage,
			contains: "did not return an image",
		},
		{
			name:     "bad base64",
			body:     `{"candidates":[{"content":{"parts":[{"inlineData":{"data":"%%%"}}]}}]}`,
			code:     apperr.CodeInternal,
			contains: "decode image payload",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseImageResponse([]byte(tc.body))
			ae, ok := apperr.As(err)
			if !ok {
				t.Fatalf("expected *apperr.Error, got %v", err)
			}
			if ae.Code != tc.code {
				t.Fatalf("code = %s, want %s (%v)", ae.Code, tc.code, err)
			}
			if tc.contains != "" && !strings.Contains(ae.Error(), tc.contains) {
				t.Fatalf("message %q does not contain %q", ae.Error(), tc.contains)
			}
		})
	}
}

func TestParseImageResponseStopIsNotReported(t *testing.T) {
	_, err := ParseImageResponse([]byte(`{"candidates":[{"finishReason":"STOP","content":{"parts":[]}}]}`))
	ae, _ := apperr.As(err)
	if ae == nil || ae.Code != apperr.CodeNoImage {
		t.Fatalf("expected no image, got %v", err)
	}
	if strings.Contains(ae.Message, "Finish reason") {
		t.Fatalf("STOP must not be reported, got %q", ae.Message)
	}
}

func TestParseImageResponsePicksCandidateWithImage(t *testing.T) {
	data := base64.StdEncoding.EncodeToString([]byte("second"))
	body := `{"candidates":[` +
		`{"finishReason":"OTHER","content":{"parts":[{"text":"nothing here"}]}},` +
		`{"finishReason":"STOP","safetyRatings":[{"category":"x"}],"content":{"parts":[{"text":"here you go"},{"inlineData":{"mimeType":"image/png","data":"` + data + `"}}]}}` +
		`]}`

	img, err := ParseImageResponse([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(img.Data) != "second" || img.MimeType != "image/png" {
		t.Fatalf("unexpected image %#v", img)
	}
	if img.Feedback.FinishReason != "STOP" || img.Feedback.Text != "here you go" {
		t.Fatalf("unexpected feedback %#v", img.Feedback)
	}
	if len(img.Feedback.SafetyRatings) == 0 {
		t.Fatalf("expected safety ratings to be carried")
	}
}

func TestParseImageResponseDefaultsMime(t *testing.T) {
	data := base64.StdEncoding.EncodeToString([]byte("x"))
	img, err := ParseImageResponse([]byte(`{"candidates":[{"content":{"parts":[{"inlineData":{"data":"` + data + `"}}]}}]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.MimeType != "image/webp" {
		t.Fatalf("expected image/webp default, got %q", img.MimeType)
	}
}

func TestFeedbackSummary(t *testing.T) {
	if s := (Feedback{FinishReason: "STOP"}).Summary(); s != "" {
		t.Fatalf("nominal feedback should summarize to empty, got %q", s)
	}
	fb := Feedback{FinishReason: "MAX_TOKENS", PromptFeedback: []byte(`{"blockReason":"OTHER"}`)}
	if s := fb.Summary(); s != "finish: max_tokens | block: other" {
		t.Fatalf("unexpected summary %q", s)
	}
}
