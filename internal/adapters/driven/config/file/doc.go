// Package file provides file-based implementations of driven port interfaces.
//
// Adapters:
//   - ConfigStore: TOML configuration at ~/.docstage/config.toml
//   - PromptStore: editable model prompts under ~/.docstage/prompts
package file
