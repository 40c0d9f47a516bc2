package app

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SessionRegistry tracks the client sessions served by the hub.
type SessionRegistry interface {
	Add(id string, c *Client)
	Get(id string) (*Client, bool)
	Remove(id string) (*Client, bool)
	Len() int
}

// TopicKey normalizes a topic for cache lookups: case and runs of
// whitespace do not distinguish topics.
func TopicKey(topic string) string {
	return strings.ToLower(strings.Join(strings.Fields(topic), " "))
}

// KeyFingerprint identifies an API key without retaining it.
func KeyFingerprint(apiKey string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(apiKey)))
	return hex.EncodeToString(sum[:16])
}
