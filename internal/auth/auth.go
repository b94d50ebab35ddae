// Package auth implements the two-role bearer token gate: submit lane,
// approve lane, and an optional legacy write token that grants both.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"strings"
)

// Role is resolved from the presented bearer token; each endpoint declares
// the minimum role it requires.
type Role int

const (
	RoleAnonymous Role = iota
	RoleSubmitter
	RoleApprover
)

func (r Role) String() string {
	switch r {
	case RoleSubmitter:
		return "submitter"
	case RoleApprover:
		return "approver"
	default:
		return "anonymous"
	}
}

// Gate resolves bearer tokens to roles.
type Gate struct {
	submitToken  string
	approveToken string
}

// NewGate builds a Gate. Any token left blank is filled with a random
// 32-byte value printed once to logger, matching the startup contract in
// spec.md §4.H. legacyWriteToken, if set, is folded into both lanes
// whenever the split tokens were not explicitly configured.
func NewGate(submitToken, approveToken, legacyWriteToken string, logger *log.Logger) *Gate {
	if logger == nil {
		logger = log.Default()
	}

	if submitToken == "" && legacyWriteToken != "" {
		submitToken = legacyWriteToken
	}
	if approveToken == "" && legacyWriteToken != "" {
		approveToken = legacyWriteToken
	}

	if submitToken == "" {
		submitToken = generateToken()
		logger.Printf("auth: generated submit token: %s", submitToken)
	}
	if approveToken == "" {
		approveToken = generateToken()
		logger.Printf("auth: generated approve token: %s", approveToken)
	}

	return &Gate{submitToken: submitToken, approveToken: approveToken}
}

func generateToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand.Read only fails if the OS entropy source is broken,
		// which is not a condition any fallback token strategy can help.
		panic("auth: failed to read random token: " + err.Error())
	}
	return hex.EncodeToString(buf)
}

// RoleFor classifies a raw "Authorization" header value. Read operations
// are anonymous and never call this.
func (g *Gate) RoleFor(authorizationHeader string) Role {
	token := bearerToken(authorizationHeader)
	if token == "" {
		return RoleAnonymous
	}
	switch token {
	case g.approveToken:
		return RoleApprover
	case g.submitToken:
		return RoleSubmitter
	default:
		return RoleAnonymous
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}
