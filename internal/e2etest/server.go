// Package e2etest runs the application in-process and talks to it over HTTP like a real client would.
package e2etest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/myrjola/repcoach/internal/logging"
)

type Server struct {
	url        string
	client     *Client
	cancel     context.CancelCauseFunc
	serverDone chan struct{}
}

// LogAddrKey is the key used to log the address the server is listening on.
const LogAddrKey = "addr"

// StartServer starts the test server, waits for it to be ready, and returns it. The server is shut down when the
// test finishes.
//
// logSink is the writer to which the server logs are written. You usually want to use testhelpers.NewWriter.
// lookupEnv is a function that returns the value of an environment variable. It has same signature as [os.LookupEnv].
// run is the function that starts the server. We expect the server to log the address it's listening on to LogAddrKey.
func StartServer(
	t *testing.T,
	logSink io.Writer,
	lookupEnv func(string) (string, bool),
	run func(context.Context, *slog.Logger, func(string) (string, bool)) error,
) (*Server, error) {
	t.Helper()
	var server *Server
	t.Cleanup(func() {
		if server != nil {
			server.Shutdown()
		}
	})
	// The server outlives t.Context() which is cancelled before the cleanup functions run.
	ctx, cancel := context.WithCancelCause(context.WithoutCancel(t.Context()))
	serverDone := make(chan struct{})

	// We need to grab the dynamically allocated port from the log output.
	addrCh := make(chan string, 1)
	handler := slog.NewTextHandler(logSink, &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelDebug,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == LogAddrKey {
				select {
				case addrCh <- a.Value.String():
				default:
				}
			}
			return a
		},
	})
	logger := slog.New(logging.NewContextHandler(handler))

	go func() {
		defer close(serverDone)
		if err := run(ctx, logger, lookupEnv); err != nil {
			cancel(err)
		}
	}()
	var addr string
	select {
	case <-ctx.Done():
		<-serverDone
		return nil, fmt.Errorf("server stopped: %w", context.Cause(ctx))
	case addr = <-addrCh:
	}

	server = &Server{
		url:        fmt.Sprintf("http://%s", addr),
		client:     nil,
		cancel:     cancel,
		serverDone: serverDone,
	}
	var err error
	if server.client, err = NewClient(server.url); err != nil {
		return nil, fmt.Errorf("new client: %w", err)
	}
	if err = server.client.WaitForReady(ctx, "/api/healthy"); err != nil {
		return nil, fmt.Errorf("wait for ready: %w", err)
	}
	return server, nil
}

// Client returns a client with its own cookie jar. Every client acts as a separate anonymous profile.
func (s *Server) Client() *Client {
	return s.client
}

// NewClient returns a client without cookies, acting as a new profile.
func (s *Server) NewClient() (*Client, error) {
	return NewClient(s.url)
}

func (s *Server) URL() string {
	return s.url
}

// Shutdown stops the server and waits for it to finish.
func (s *Server) Shutdown() {
	s.cancel(nil)
	<-s.serverDone
}
