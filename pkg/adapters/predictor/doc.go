// Package predictor provides Predictor implementations.
//
// The factory creates a predictor based on provider configuration.
// Currently supports:
//   - placeholder: fixed prediction string, no model behind it
package predictor
