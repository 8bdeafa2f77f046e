package main

import (
	"net/http"
	"time"
)

// newHTTPServer applies the server timeouts. When streamsBlobs is set, file bodies
// pass through this server (memory storage), so reads and writes are left unbounded
// and only the request headers keep a deadline.
func newHTTPServer(addr string, handler http.Handler, streamsBlobs bool) *http.Server {
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	if streamsBlobs {
		server.ReadTimeout = 0
		server.WriteTimeout = 0
		server.ReadHeaderTimeout = 10 * time.Second
	}
	return server
}
