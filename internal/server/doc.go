// Package server implements the HTTP API for the voice message service.
// It handles media upload and conversion, message listing, welcome media
// settings, websocket subscriptions and monitoring endpoints.
package server
