package reconcile

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	domainContent = "gitcore/content/v1"
	domainPlan    = "gitcore/plan/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentDigest returns the identity recorded for file content in snapshots,
// plan ops, and the run journal.
func ContentDigest(data []byte) string {
	return hashWithDomain(domainContent, data)
}

// PlanDigest computes the content-addressed identity of a plan. Two plans
// that would perform the same operations share a digest regardless of when
// or where they were computed.
func PlanDigest(p *Plan) (string, error) {
	canonical, err := p.CanonicalJSON()
	if err != nil {
		return "", fmt.Errorf("PlanDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(domainPlan, canonical), nil
}
