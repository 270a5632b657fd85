package fact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content digests. The version suffix leaves room for
// a future change of encoding.
const (
	DomainFact    = "fixpoint/fact/v1"
	DomainResult  = "fixpoint/result/v1"
	DomainRuleSet = "fixpoint/ruleset/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator keeps domain and data from running together.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest returns the domain-separated SHA-256 of v's canonical JSON.
// Structurally equal acyclic values have equal digests.
func Digest(domain string, v Value) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// DigestBytes hashes raw content, such as a rule file, under domain.
func DigestBytes(domain string, data []byte) string {
	return hashWithDomain(domain, data)
}
