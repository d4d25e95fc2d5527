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


// Package openai provides ai.Embedder and ai.TitleGenerator implementations
// backed by OpenAI-compatible APIs (OpenAI, Ollama, LocalAI, vLLM, etc).
//
// Both services are built on langchaingo clients and configured from a
// shared ai.Config. Local services that require no authentication are
// supported by sending a placeholder token.
package openai
