// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for the local Ollama server.
//
// The client covers the endpoints this tool uses: /api/chat (streaming
// and not), /api/generate for one-shot completions, /api/tags and
// /api/show for model discovery, plus a reachability probe. It performs
// no retries and holds no conversation state; both are caller policy.
//
// # Key Types
//
//   - Client: request issuing and error mapping
//   - Message / ChatRequest / ChatResponse: the wire format
//   - StreamReader: NDJSON decoding of one streaming response
//   - StreamAccumulator: per-request display buffer with lifecycle state
//   - ClientError / StreamInterruptedError: the two failure shapes
//
// # Failure model
//
// A request that never reaches the server fails with a ClientError
// (connection, timeout, bad response). A streaming response that dies
// after it began fails with a StreamInterruptedError carrying the partial
// text, so the caller can keep what was already shown. Cancellation is
// polled between chunks and surfaces as the context's error.
//
// # Usage
//
//	client := ollama.NewClient()
//	err := client.ChatStream(ctx, "llama3", messages, func(chunk ollama.StreamChunk) {
//	    fmt.Print(chunk.Content)
//	})
package ollama
