// Package websocket provides the prediction stream via WebSocket.
//
// Clients connect to /ws/predict and receive one prediction frame for
// every message they send.
package websocket
