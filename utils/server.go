package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	defaultReadTimeout     = 60 * time.Second
	defaultWriteTimeout    = defaultReadTimeout
	defaultShutdownTimeout = 30 * time.Second

	// inheritedListenerEnv marks a child started by a SIGUSR2 restart; fd 3 is the parent's listener.
	inheritedListenerEnv = "BLOGAPI_INHERITED_LISTENER=1"
	inheritedListenerFD  = 3
)

// Server wraps http.Server with signal driven graceful shutdown and zero-downtime restart.
type Server struct {
	*http.Server
	listener net.Listener
}

// NewServer creates a Server with timeouts and handler.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{Server: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       defaultReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      defaultWriteTimeout,
	}}
}

// Run serves until SIGINT/SIGTERM (drain and exit) or SIGUSR2 (hand the listener to a new process, then drain).
func (srv *Server) Run() error {
	ln, err := srv.listen()
	if err != nil {
		return err
	}
	srv.listener = ln

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR2)
	defer signal.Stop(sigs)

	for {
		select {
		case err := <-serveErr:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case sig := <-sigs:
			if sig == syscall.SIGUSR2 {
				pid, err := srv.spawnChild()
				if err != nil {
					Sugar.Errorf("graceful restart failed: %v, continue serving", err)
					continue
				}
				Sugar.Infof("graceful restart: new process pid=%d, draining old server", pid)
			} else {
				Sugar.Infof("received %s, shutting down HTTP server", sig)
			}
			return srv.drain()
		}
	}
}

func (srv *Server) drain() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	Sugar.Info("HTTP server shutdown complete")
	return nil
}

func (srv *Server) listen() (net.Listener, error) {
	for _, e := range os.Environ() {
		if e == inheritedListenerEnv {
			ln, err := net.FileListener(os.NewFile(inheritedListenerFD, "listener"))
			if err != nil {
				return nil, fmt.Errorf("inherit listener: %w", err)
			}
			return ln, nil
		}
	}
	addr := srv.Addr
	if addr == "" {
		addr = ":http"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return ln, nil
}

func (srv *Server) spawnChild() (int, error) {
	tcpLn, ok := srv.listener.(*net.TCPListener)
	if !ok {
		return 0, errors.New("listener is not a TCP listener")
	}
	file, err := tcpLn.File()
	if err != nil {
		return 0, fmt.Errorf("listener file: %w", err)
	}
	defer file.Close()

	env := []string{}
	for _, e := range os.Environ() {
		if e != inheritedListenerEnv {
			env = append(env, e)
		}
	}
	env = append(env, inheritedListenerEnv)

	return syscall.ForkExec(os.Args[0], os.Args, &syscall.ProcAttr{
		Env:   env,
		Files: []uintptr{os.Stdin.Fd(), os.Stdout.Fd(), os.Stderr.Fd(), file.Fd()},
	})
}
