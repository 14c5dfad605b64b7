/*
Package httpcore implements the per-connection HTTP/1.1 exchange engine:
request-head parsing, Content-Length/chunked body decoding, chunked
response encoding, framing validation, a path/media-type routing table,
and the connection lifecycle (accept, idle, active, graceful shutdown)
that drives it all.

httpcore does not terminate TLS, load process configuration, or wire
logging sinks for you — those are the caller's job. It consumes a byte-
stream duplex (net.Conn satisfies it) and a Handler, and runs the
exchange state machine described in the package's component files:

	bytechannel.go  buffered duplex I/O, half-close, EOS
	head.go         request-line + header block parser
	headers.go      ordered case-insensitive header multimap
	body.go         Content-Length / chunked body decoders, trailers
	framing.go      chunked body encoder + response framing validator
	router.go       path-pattern + media-type routing table
	pipeline.go     before/after action chains
	exchange.go     per-request state machine, 100-Continue, interim responses
	server.go       accept loop, idle timeout, persistence, graceful stop
	workerpool.go   FILO pool of goroutines serving accepted connections
	server_idle_conn_list.go  tracks connections inside an exchange for Stop
	events.go       RequestHeadReceived / ResponseSent / HttpServerStopped
	errors.go       exception taxonomy -> status code mapping
*/
package httpcore
