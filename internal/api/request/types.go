package request

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"

	"github.com/mcoot/memorygame/internal/services/leaderboard"
)

// ErrNotAnObject is returned when a request body is not a JSON object
var ErrNotAnObject = errors.New("request body must be a JSON object")

// RegisterRequest is the request body for registering a player
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SubmitScoreRequest is the request body for submitting a score.
//
// Fields are kept raw so that a wrongly-typed value counts as absent instead
// of failing the whole request: name must be a JSON string and the numeric
// fields must be JSON integers.
type SubmitScoreRequest struct {
	Name  json.RawMessage `json:"name"`
	Score json.RawMessage `json:"score"`
	Time  json.RawMessage `json:"time"`
	Moves json.RawMessage `json:"moves"`
	Pairs json.RawMessage `json:"pairs"`
}

// DecodeSubmitScore reads a SubmitScoreRequest. An empty body is treated as
// an empty object.
func DecodeSubmitScore(body io.Reader) (*SubmitScoreRequest, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	req := &SubmitScoreRequest{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return req, nil
	}
	if trimmed[0] != '{' {
		return nil, ErrNotAnObject
	}
	if err := json.Unmarshal(trimmed, req); err != nil {
		return nil, err
	}
	return req, nil
}

// ToSubmission converts the request into a leaderboard submission
func (r *SubmitScoreRequest) ToSubmission(credential string) leaderboard.Submission {
	return leaderboard.Submission{
		Credential:     credential,
		Name:           stringField(r.Name),
		Score:          integerField(r.Score),
		ElapsedSeconds: integerField(r.Time),
		Moves:          integerField(r.Moves),
		Pairs:          integerField(r.Pairs),
	}
}

func stringField(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return ""
	}
	return s
}

// integerField returns nil unless raw is a JSON number with no fraction or exponent
func integerField(raw json.RawMessage) *int64 {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	v, err := strconv.ParseInt(string(trimmed), 10, 64)
	if err != nil {
		return nil
	}
	return &v
}
