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


// Package storage defines the persistence interfaces for the signal log
// and the candidate cluster pool, together with the MUS serialization
// helpers shared by backend implementations.
//
// Two repositories cover the data model. SignalRepository holds every
// ingested signal keyed by id, with a timestamp index for date-range reads
// and brute-force vector similarity over the stored embeddings.
// CandidateRepository holds the evolving cluster pool keyed by cluster id,
// with a creation-time index so the pool always loads in the order the
// evolution engine expects.
//
// The canonical implementation backed by BadgerDB lives in the badger
// subpackage.
package storage
