package collabauth

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// sessionTokenPayload is the material a session token is derived from. The
// token itself is opaque; the payload is never stored or recoverable.
type sessionTokenPayload struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Timestamp int64  `json:"timestamp"`
	Random    string `json:"random"`
}

// NewSessionToken synthesizes an opaque session token for the user: a
// SHA-256 hex digest over {userId, email, timestamp, random}. Tokens carry
// no server-verifiable claims; their only use is existence-checking at
// startup.
func NewSessionToken(user *UserRecord) string {
	payload, _ := json.Marshal(sessionTokenPayload{
		UserID:    user.ID,
		Email:     user.Email,
		Timestamp: time.Now().UnixMilli(),
		Random:    uuid.NewString(),
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
