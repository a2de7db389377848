// Package hashing computes document content hashes for the exact-copy rule.
package hashing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

type SHA256Hasher struct{}

func NewSHA256() *SHA256Hasher {
	return &SHA256Hasher{}
}

// Hash streams the file through SHA-256 and returns the lowercase hex digest.
func (SHA256Hasher) Hash(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for hashing: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
