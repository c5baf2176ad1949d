// Package transport provides the HTTP client used to deliver chat
// messages and their media attachments to the messaging API. Uploads
// are multipart/form-data requests with retry, exponential backoff
// and a concurrency limit.
package transport
