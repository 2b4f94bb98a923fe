package model

import "strings"

const claimJobIDPrefix = "swap:"

// ClaimJob is the payload of a scheduled reward claim.
type ClaimJob struct {
	SwapID  string  `json:"swapId"`
	Secret  string  `json:"secret"`
	Network Network `json:"network"`
}

// ClaimJobID returns the deterministic job id for a swap. At most one
// scheduled or active claim job exists per id.
func ClaimJobID(swapID string) string {
	return claimJobIDPrefix + swapID
}

// SwapIDFromClaimJobID reverses ClaimJobID.
func SwapIDFromClaimJobID(jobID string) (string, bool) {
	if !strings.HasPrefix(jobID, claimJobIDPrefix) {
		return "", false
	}
	return strings.TrimPrefix(jobID, claimJobIDPrefix), true
}
