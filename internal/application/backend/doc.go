// Package backend implements the application service behind the AIUI API.
//
// The service owns the welcome message and delegates predictions to a
// ports.Predictor, counting each one it serves. HTTP and websocket
// transports call it; none of them hold state of their own.
package backend
