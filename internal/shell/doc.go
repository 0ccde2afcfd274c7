// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package shell executes /run commands with a persistent working directory.
//
// Commands go through the system shell (bash -c, or cmd /C on Windows)
// with a per-command timeout and an output size cap. cd is a builtin:
// the subprocess cannot change its parent's directory, so the runner
// tracks the working directory itself and applies cd before spawning
// anything.
//
// Command text is NFKC-normalized before execution. /run lines are
// often pasted from model output, which tends to contain non-breaking
// spaces and fullwidth characters that the shell would otherwise treat
// as parts of a word.
//
// # Key Types
//
//   - Runner: executes one command at a time, remembers the directory
//   - Result: output, exit code, duration, truncation and timeout flags
package shell
