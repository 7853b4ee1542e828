// Package dedupe consumes the output of the external duplicate-collection
// detector. No matching logic lives here; this core only turns a detection
// result into bulk-delete targets.
package dedupe

import (
	"encoding/json"
	"fmt"
	"sort"
)

// DuplicateGroup is a set of entries the detector considers the same
// submission. KeepNewest survives; ToDelete are slated for removal.
type DuplicateGroup struct {
	Entries    []int64 `json:"entries"`
	KeepNewest int64   `json:"keepNewest"`
	ToDelete   []int64 `json:"toDelete"`
}

// NearDuplicate is a pair the detector flagged as close but not identical.
// Surfaced for operator review only; never deleted automatically.
type NearDuplicate struct {
	Entry1            int64   `json:"entry1"`
	Entry2            int64   `json:"entry2"`
	Difference        string  `json:"difference"`
	PercentDifference float64 `json:"percentDifference"`
	Reason            string  `json:"reason"`
}

// DetectionResult is the pre-computed analysis supplied by the detector.
type DetectionResult struct {
	DuplicateGroups      []DuplicateGroup `json:"duplicateGroups"`
	NearDuplicateEntries []NearDuplicate  `json:"nearDuplicateEntries"`
	SuspiciousEntries    []int64          `json:"suspiciousEntries"`
}

// ParseResult decodes a detection result document.
func ParseResult(data []byte) (*DetectionResult, error) {
	var result DetectionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse detection result: %w", err)
	}
	return &result, nil
}

// DeletionTargets returns the deduplicated union of every group's ToDelete
// ids and the suspicious entries, sorted ascending. One bulk delete request
// covers them all.
func DeletionTargets(result *DetectionResult) []int64 {
	seen := make(map[int64]bool)
	var targets []int64
	add := func(id int64) {
		if id != 0 && !seen[id] {
			seen[id] = true
			targets = append(targets, id)
		}
	}
	for _, group := range result.DuplicateGroups {
		for _, id := range group.ToDelete {
			add(id)
		}
	}
	for _, id := range result.SuspiciousEntries {
		add(id)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	return targets
}
