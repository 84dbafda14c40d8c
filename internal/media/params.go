package media

import "encoding/json"

// Wire-level parameter types. These are relayed verbatim to the browser in
// signaling acknowledgements, so the JSON field names follow the client-side
// device API.

type IceParameters struct {
	UsernameFragment string `json:"usernameFragment"`
	Password         string `json:"password"`
	IceLite          bool   `json:"iceLite,omitempty"`
}

type IceCandidate struct {
	Foundation string `json:"foundation"`
	Priority   uint32 `json:"priority"`
	IP         string `json:"ip"`
	Port       uint16 `json:"port"`
	Protocol   string `json:"protocol"`
	Type       string `json:"type"`
}

type DtlsFingerprint struct {
	Algorithm string `json:"algorithm"`
	Value     string `json:"value"`
}

type DtlsParameters struct {
	Role         string            `json:"role,omitempty"`
	Fingerprints []DtlsFingerprint `json:"fingerprints"`
}

// RtpParameters and RtpCapabilities are opaque to the orchestration layer:
// produced by the browser or the engine, validated by the engine, never
// inspected here. Keeping them raw avoids chasing codec schema churn.
type (
	RtpParameters   = json.RawMessage
	RtpCapabilities = json.RawMessage
)
