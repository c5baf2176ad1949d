// Package store persists chat messages and their media attachments.
// The SQLite implementation keeps attachments as a JSON column on the
// message row, which matches how the messaging API reports them.
package store
