package domain

import "time"

// RateLimitDecision is the limiter's verdict for one request
type RateLimitDecision struct {
	Allowed   bool          `json:"allowed"`
	Count     int64         `json:"count"`
	Limit     int64         `json:"limit"`
	Remaining int64         `json:"remaining"`
	ResetIn   time.Duration `json:"reset_in"`
}

// PasswordIdentity is what the password gateway returns for valid credentials
type PasswordIdentity struct {
	LocalID     string
	Email       string
	DisplayName string
}
