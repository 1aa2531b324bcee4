package models

import "time"

type VerifierSession struct {
	AssetID    string    `json:"assetId"`
	ServiceID  string    `json:"serviceId"`
	SessionID  string    `json:"sessionId"`
	VerifiedAt time.Time `json:"verifiedAt"`
}

func (s *VerifierSession) Fresh(ttl time.Duration, now time.Time) bool {
	if s == nil || s.SessionID == "" {
		return false
	}
	if ttl <= 0 {
		return true
	}
	return now.Sub(s.VerifiedAt) < ttl
}

type InputDescriptor struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Purpose string `json:"purpose,omitempty"`
}

type PresentationDefinition struct {
	ID               string            `json:"id"`
	InputDescriptors []InputDescriptor `json:"input_descriptors"`
}

// Credential is a wallet credential matched against an input descriptor.
type Credential struct {
	ID           string   `json:"id"`
	Type         []string `json:"type,omitempty"`
	DescriptorID string   `json:"inputDescriptor"`
}

type Did struct {
	Did     string `json:"did"`
	Alias   string `json:"alias,omitempty"`
	Default bool   `json:"default,omitempty"`
}
