package risk

import (
	"errors"
	"strings"
)

// ModelID names one of the risk calculators.
type ModelID string

const (
	ModelGail  ModelID = "gail"
	ModelBCSC  ModelID = "bcsc"
	ModelBRCA  ModelID = "brca"
	ModelQRISK ModelID = "qrisk"
)

// ErrUnknownModel is returned for a model id outside the supported set.
var ErrUnknownModel = errors.New("unknown risk model")

// Models returns all supported model ids in a stable order.
func Models() []ModelID {
	return []ModelID{ModelGail, ModelBCSC, ModelBRCA, ModelQRISK}
}

// ParseModel converts a case-insensitive string into a ModelID.
func ParseModel(s string) (ModelID, error) {
	id := ModelID(strings.ToLower(strings.TrimSpace(s)))
	for _, m := range Models() {
		if m == id {
			return m, nil
		}
	}
	return "", ErrUnknownModel
}
