// Package notify pushes chat events to connected websocket clients.
// Clients subscribe to a room per chat and receive JSON events when
// new messages are stored.
package notify
