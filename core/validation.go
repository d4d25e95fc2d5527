// Copyright 2025 Kestrel Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"time"
)

// ValidateSignal validates a Signal according to domain rules.
//
// Validation rules:
//   - Id must not be empty
//   - Text must not be empty
//   - Timestamp must not be in the future
//
// NOT validated (populated by the pipeline):
//   - Vector (can be empty until the embedding step runs)
//   - Metadata (optional)
func ValidateSignal(signal *Signal) error {
	if signal == nil {
		return fmt.Errorf("%w: signal is nil", ErrInvalidSignal)
	}

	if signal.Id == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSignal, ErrEmptySignalId)
	}

	if signal.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSignal, ErrEmptyText)
	}

	if !IsValidTimestamp(signal.Timestamp) {
		return fmt.Errorf("%w: %w", ErrInvalidSignal, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateCandidateCluster checks the structural invariants of a cluster.
//
// Validation rules:
//   - Id must not be empty
//   - SignalCount must equal len(Signals) and len(Embeddings)
//   - no two signals may share an id
func ValidateCandidateCluster(cluster *CandidateCluster) error {
	if cluster == nil {
		return fmt.Errorf("%w: cluster is nil", ErrInvalidCluster)
	}

	if cluster.Id == "" {
		return fmt.Errorf("%w: cluster id cannot be empty", ErrInvalidCluster)
	}

	if cluster.SignalCount != len(cluster.Signals) {
		return fmt.Errorf("%w: signal count %d does not match %d signals",
			ErrInvalidCluster, cluster.SignalCount, len(cluster.Signals))
	}

	if len(cluster.Embeddings) > 0 && len(cluster.Embeddings) != len(cluster.Signals) {
		return fmt.Errorf("%w: %d embeddings for %d signals",
			ErrInvalidCluster, len(cluster.Embeddings), len(cluster.Signals))
	}

	seen := make(map[string]bool, len(cluster.Signals))
	for _, s := range cluster.Signals {
		if seen[s.Id] {
			return fmt.Errorf("%w: duplicate signal id %q", ErrInvalidCluster, s.Id)
		}
		seen[s.Id] = true
	}

	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
