package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// genesisSeed is the deterministic constant anchoring every chain,
// mirroring original_source's AuditLog::calculate_genesis_hash.
const genesisSeed = "COSTPILOT_AUDIT_LOG_GENESIS_2025"

// signaturePrefix is prepended before hashing to produce the placeholder
// signature. It is not a keyed MAC — a real deployment would replace this
// with a signing key and a proper signature scheme.
const signaturePrefix = "COSTPILOT_AUDIT:"

func hexSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func genesisHash() string {
	return hexSHA256([]byte(genesisSeed))
}

func entryHash(sequence uint64, eventHash, previousHash string) string {
	combined := fmt.Sprintf("%d:%s:%s", sequence, eventHash, previousHash)
	return hexSHA256([]byte(combined))
}

func entrySignature(hash string) string {
	return hexSHA256([]byte(signaturePrefix + hash))
}
