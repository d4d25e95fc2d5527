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

import "errors"

// Domain validation errors
var (
	// ErrInvalidSignal indicates a Signal failed validation.
	ErrInvalidSignal = errors.New("invalid signal")

	// ErrEmptySignalId indicates the signal Id field is empty.
	ErrEmptySignalId = errors.New("signal id cannot be empty")

	// ErrEmptyText indicates the Text field is empty.
	ErrEmptyText = errors.New("signal text cannot be empty")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")

	// ErrInvalidCluster indicates a CandidateCluster failed validation.
	ErrInvalidCluster = errors.New("invalid cluster")

	// ErrNoVectors indicates a vector operation was given an empty list.
	ErrNoVectors = errors.New("no vectors provided")

	// ErrDimensionMismatch indicates vectors of differing dimensions.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
