// Package convert implements the two-stage audio conversion pipeline:
// a best-effort client-side re-encode that never loses the original bytes,
// and the authoritative server-side ffmpeg transcode to AAC in MP4 with a
// byte-copy fallback.
package convert
