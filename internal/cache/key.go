package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"riskcalc/internal/risk"
)

type keyMaterial struct {
	Model risk.ModelID    `json:"model"`
	Input *risk.RiskInput `json:"input"`
}

// Key returns the canonical SHA-256 digest of a model and input. Struct
// fields marshal in declaration order and map keys sorted, so equal inputs
// always produce equal keys regardless of how the gene map was built.
func Key(model risk.ModelID, in *risk.RiskInput) (string, error) {
	data, err := json.Marshal(keyMaterial{Model: model, Input: in})
	if err != nil {
		return "", fmt.Errorf("canonicalize input: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
