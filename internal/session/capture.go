package session

import (
	"fmt"
	"strings"
)

// CapturePolicy decides where a history record takes its text and
// language pair from
type CapturePolicy int

const (
	// CaptureAtSettlement uses the text and language pair current when the
	// request settles
	CaptureAtSettlement CapturePolicy = iota
	// CaptureAtRequest uses the text and language pair of the request that
	// settled
	CaptureAtRequest
)

func (p CapturePolicy) String() string {
	switch p {
	case CaptureAtSettlement:
		return "settlement"
	case CaptureAtRequest:
		return "request"
	default:
		return "unknown"
	}
}

// ParseCapturePolicy parses "settlement" or "request"
func ParseCapturePolicy(s string) (CapturePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "settlement":
		return CaptureAtSettlement, nil
	case "request":
		return CaptureAtRequest, nil
	default:
		return CaptureAtSettlement, fmt.Errorf("unknown history capture policy: %s", s)
	}
}
