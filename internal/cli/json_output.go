// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - JSON output support for scripting.
//
// Provides a standardized envelope for every command that accepts
// --json, so scripts can rely on one shape: success flag, data
// payload, error string, and a UTC timestamp.

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// JSONResponse is the standardized response format for all CLI commands.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data interface{} `json:"data"`

	// Error contains the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// Timestamp is the ISO8601 timestamp when the response was generated
	Timestamp string `json:"timestamp"`

	// Command is the command that was executed
	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Error:     nil,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a new error JSON response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	errStr := err.Error()
	return &JSONResponse{
		Success:   false,
		Data:      nil,
		Error:     &errStr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print outputs the JSON response to stdout.
// Human-readable messages should go to stderr when JSON mode is enabled.
func (r *JSONResponse) Print() error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// String returns the JSON response as a string.
func (r *JSONResponse) String() string {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":"failed to marshal response: %s","timestamp":"%s"}`,
			err.Error(), time.Now().UTC().Format(time.RFC3339))
	}
	return string(data)
}

// =============================================================================
// COMMAND-SPECIFIC DATA STRUCTURES
// =============================================================================

// StatusData represents the data returned by the status command.
type StatusData struct {
	Server StatusServerInfo `json:"server"`
	Model  StatusModelInfo  `json:"model"`
	Config StatusConfigInfo `json:"config"`
}

// StatusServerInfo contains server reachability information.
type StatusServerInfo struct {
	URL       string `json:"url"`
	Reachable bool   `json:"reachable"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// StatusModelInfo contains the active model and availability.
type StatusModelInfo struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Count     int    `json:"models_installed"`
}

// StatusConfigInfo contains resolved configuration for status output.
type StatusConfigInfo struct {
	Path          string `json:"path"`
	SystemPrompt  bool   `json:"system_prompt_set"`
	ContextTokens int    `json:"context_tokens"`
	HistoryDir    string `json:"history_dir"`
	AutoSave      bool   `json:"auto_save"`
}

// ModelsData represents the data returned by the models command.
type ModelsData struct {
	Models []ModelEntry `json:"models"`
	Count  int          `json:"count"`
}

// ModelEntry is one installed model in models output.
type ModelEntry struct {
	Name          string `json:"name"`
	Size          int64  `json:"size_bytes"`
	SizeHuman     string `json:"size"`
	ParameterSize string `json:"parameter_size,omitempty"`
	Quantization  string `json:"quantization,omitempty"`
	Family        string `json:"family,omitempty"`
	ModifiedAt    string `json:"modified_at"`
}

// SessionListData represents the data returned by sessions list.
type SessionListData struct {
	Sessions []SessionEntry `json:"sessions"`
	Count    int            `json:"count"`
}

// SessionEntry is one saved conversation in sessions output.
type SessionEntry struct {
	Index     int    `json:"index"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	Model     string `json:"model"`
	Turns     int    `json:"turns"`
	UpdatedAt string `json:"updated_at"`
}

// VersionData represents the data returned by the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}

// AskData represents the data returned by ask in JSON mode.
type AskData struct {
	Response     string  `json:"response"`
	Model        string  `json:"model"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	DurationMs   int64   `json:"duration_ms"`
	TokensPerSec float64 `json:"tokens_per_sec,omitempty"`
}
