package model

import (
	"time"
)

// AuditLog is one gateway request together with the signing context the
// handlers attached to it (action, user, nonce). Signatures are redacted
// before a record is stored.
type AuditLog struct {
	ID        string `json:"id" gorm:"primaryKey"`
	Method    string `json:"method"`
	Path      string `json:"path" gorm:"index"`
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`

	RequestBody  string `json:"request_body"`
	StatusCode   int    `json:"status_code"`
	ResponseBody string `json:"response_body"`
	LatencyMs    int64  `json:"latency_ms"`

	Context map[string]interface{} `json:"context" gorm:"serializer:json;type:jsonb"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
}
