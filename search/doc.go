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


// Package search ranks candidate clusters against free-text queries.
//
// Scoring is hybrid: a semantic channel (cosine similarity between the
// query embedding and the cluster centroid) blended with a lexical channel
// (keyword overlap between the query and the cluster's signal texts). The
// blend keeps short keyword-style queries useful even when their embeddings
// are noisy, and keeps paraphrased queries useful when they share no words
// with the cluster.
package search
