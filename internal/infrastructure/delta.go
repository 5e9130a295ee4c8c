package infrastructure

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/Victor-armando18/service-catalog/internal/domain"
)

// FactsDelta computes the RFC 7386 merge patch between the facts
// before and after an engine run. The boolean flags whether the run
// changed anything ("{}" is two bytes), so downstream adapters can
// skip the cart write entirely.
func FactsDelta(before, after domain.Facts) (json.RawMessage, bool, error) {
	beforeJSON, err := json.Marshal(before)
	if err != nil {
		return nil, false, err
	}
	afterJSON, err := json.Marshal(after)
	if err != nil {
		return nil, false, err
	}
	patch, err := jsonpatch.CreateMergePatch(beforeJSON, afterJSON)
	if err != nil {
		return nil, false, fmt.Errorf("facts delta: %w", err)
	}
	return patch, len(patch) > 2, nil
}

// PatchFacts applies a merge patch produced by FactsDelta onto a facts
// snapshot. The promotion-application adapter uses it to carry engine
// results back onto the source cart representation.
func PatchFacts(facts domain.Facts, patch json.RawMessage) (domain.Facts, error) {
	original, err := json.Marshal(facts)
	if err != nil {
		return nil, err
	}
	merged, err := jsonpatch.MergePatch(original, patch)
	if err != nil {
		return nil, fmt.Errorf("apply facts patch: %w", err)
	}
	var out domain.Facts
	if err := json.Unmarshal(merged, &out); err != nil {
		return nil, err
	}
	return out, nil
}
