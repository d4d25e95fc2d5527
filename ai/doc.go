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


// Package ai defines the interfaces for the external AI collaborators the
// engine depends on: text embedding and cluster title generation. Concrete
// implementations live in subpackages (openai for OpenAI-compatible
// services, mock for deterministic test doubles). The package also provides
// an explicit content-addressed embedding cache with a load/flush lifecycle.
package ai
