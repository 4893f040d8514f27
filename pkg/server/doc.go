// Package server is the HTTP surface of hotserve.
//
//	GET /@hot-notify            server-sent events, one fs-notify frame per change
//	GET /@hot-index             JSON array of every exposed file
//	GET /@hot-glob?pattern=...  matched names, then each file's bytes
//	GET /*                      static files with the fallback chain
//
// Streamed bodies are written chunk by chunk and flushed; no file is ever
// read whole into memory. Every open file and every watch listener is
// released when its response ends, however it ends.
package server
