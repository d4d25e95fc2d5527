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


package storage

import (
	"github.com/kestrelhq/trendwatch/core"
)

// MarshalSignal serializes a Signal to bytes.
func MarshalSignal(signal *core.Signal) []byte {
	buf := make([]byte, core.SignalMUS.Size(*signal))
	core.SignalMUS.Marshal(*signal, buf)
	return buf
}

// UnmarshalSignal deserializes a Signal from bytes.
func UnmarshalSignal(data []byte) (*core.Signal, error) {
	signal, _, err := core.SignalMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &signal, nil
}

// MarshalCandidateCluster serializes a CandidateCluster to bytes.
func MarshalCandidateCluster(candidate *core.CandidateCluster) []byte {
	buf := make([]byte, core.CandidateClusterMUS.Size(*candidate))
	core.CandidateClusterMUS.Marshal(*candidate, buf)
	return buf
}

// UnmarshalCandidateCluster deserializes a CandidateCluster from bytes.
func UnmarshalCandidateCluster(data []byte) (*core.CandidateCluster, error) {
	candidate, _, err := core.CandidateClusterMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &candidate, nil
}
