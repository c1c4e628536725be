package report

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"time"
)

type signaturePayload struct {
	ReportID    string   `json:"reportId"`
	SessionID   string   `json:"sessionId"`
	PackageName string   `json:"packageName"`
	Scores      []Score  `json:"scores"`
	Winners     []string `json:"winners,omitempty"`
	Reviews     []Review `json:"reviews,omitempty"`
	StartedAt   string   `json:"startedAt"`
	EndedAt     string   `json:"endedAt"`
}

func buildSignaturePayload(r *Report) signaturePayload {
	return signaturePayload{
		ReportID:    r.ReportID.String(),
		SessionID:   r.SessionID.String(),
		PackageName: r.PackageName,
		Scores:      r.Scores,
		Winners:     r.Winners,
		Reviews:     r.Reviews,
		StartedAt:   r.StartedAt.UTC().Format(time.RFC3339Nano),
		EndedAt:     r.EndedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Sign generates an HMAC signature over the report's results.
func Sign(r *Report, key []byte) ([]byte, error) {
	data, err := json.Marshal(buildSignaturePayload(r))
	if err != nil {
		return nil, err
	}
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write(data)
	return mac.Sum(nil), nil
}

// Verify checks the report signature against key.
func Verify(r *Report, key []byte) (bool, error) {
	if len(r.Signature) == 0 {
		return false, nil
	}
	expected, err := Sign(r, key)
	if err != nil {
		return false, err
	}
	return hmac.Equal(expected, r.Signature), nil
}
