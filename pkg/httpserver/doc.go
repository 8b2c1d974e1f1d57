// Package httpserver runs an http.Handler with graceful shutdown. deskctl uses
// it to serve the in-memory sandbox backend.
//
// Run listens first and only then reports readiness, so callers that ask for
// port 0 can read the bound address from Addr once Ready is closed:
//
//	srv := httpserver.New(httpserver.WithAddr("127.0.0.1:0"))
//	go srv.Run(ctx, backend.Handler())
//	<-srv.Ready()
//	fmt.Println("listening on", srv.Addr())
//
// Run returns when ctx is done or the process receives SIGINT/SIGTERM.
// Listen failures are wrapped with ErrStart and shutdown failures with ErrShutdown.
package httpserver
