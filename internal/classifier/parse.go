package classifier

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON strips markdown fences and surrounding prose from a model answer.
func extractJSON(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("no json object in model answer")
	}
	return text[start : end+1], nil
}

func parseCommentAnalysis(raw string) (CommentAnalysis, error) {
	body, err := extractJSON(raw)
	if err != nil {
		return CommentAnalysis{}, err
	}

	var payload struct {
		IsValid *bool   `json:"isValid"`
		Score   float64 `json:"score"`
		Reason  string  `json:"reason"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return CommentAnalysis{}, fmt.Errorf("decode comment analysis: %w", err)
	}
	if payload.IsValid == nil {
		return CommentAnalysis{}, fmt.Errorf("comment analysis missing isValid")
	}

	return CommentAnalysis{
		IsValid: *payload.IsValid,
		Score:   clampScore(int(payload.Score)),
		Reason:  payload.Reason,
	}, nil
}

func parseImageVerification(raw string) (ImageVerification, error) {
	body, err := extractJSON(raw)
	if err != nil {
		return ImageVerification{}, err
	}

	var payload struct {
		IsValid *bool  `json:"isValid"`
		Reason  string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return ImageVerification{}, fmt.Errorf("decode image verification: %w", err)
	}
	if payload.IsValid == nil {
		return ImageVerification{}, fmt.Errorf("image verification missing isValid")
	}
	return ImageVerification{IsValid: *payload.IsValid, Reason: payload.Reason}, nil
}

func clampScore(score int) int {
	switch {
	case score < 1:
		return 1
	case score > 3:
		return 3
	default:
		return score
	}
}
