package quiver

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// NewID generates a globally unique, time-sortable UUIDv7 (RFC 9562).
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NowUnix returns current time as Unix seconds.
func NowUnix() int64 {
	return time.Now().Unix()
}

// CollectionName derives the deterministic collection name for a
// (document, mode) pair. Repeated processing of the same document with the
// same mode therefore resolves to the same collection.
func CollectionName(documentID string, mode ChunkMode) string {
	sum := sha256.Sum256([]byte(documentID + "|" + mode.String()))
	prefix := "rag"
	if mode == ModeParentChild {
		prefix = "pc"
	}
	return prefix + "_" + hex.EncodeToString(sum[:])[:12]
}
