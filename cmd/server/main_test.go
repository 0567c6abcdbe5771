package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakeServer struct {
	addr    string
	timeout time.Duration

	listenErr   error
	shutdownErr error

	listenCalled   bool
	shutdownCalled bool
	closeCalled    bool
	gotDeadline    time.Duration
}

func (f *fakeServer) ListenAndServe() error {
	f.listenCalled = true
	return f.listenErr
}

func (f *fakeServer) Shutdown(ctx context.Context) error {
	f.shutdownCalled = true
	if dl, ok := ctx.Deadline(); ok {
		f.gotDeadline = time.Until(dl)
	}
	return f.shutdownErr
}

func (f *fakeServer) Close() error {
	f.closeCalled = true
	return nil
}

func (f *fakeServer) Addr() string                   { return f.addr }
func (f *fakeServer) ShutdownTimeout() time.Duration { return f.timeout }

func signalled() chan os.Signal {
	ch := make(chan os.Signal, 1)
	ch <- os.Interrupt
	return ch
}

func TestRun_BootstrapFail_Returns1(t *testing.T) {
	build := func() (httpServer, func(), error) {
		return nil, nil, errors.New("boom")
	}
	assert.Equal(t, 1, Run(build, make(chan os.Signal, 1), zerolog.Nop()))
}

func TestRun_OnSignal_ShutdownAndReturn0(t *testing.T) {
	fs := &fakeServer{addr: ":0", timeout: 3 * time.Second, listenErr: http.ErrServerClosed}
	cleanupCalled := false
	build := func() (httpServer, func(), error) {
		return fs, func() { cleanupCalled = true }, nil
	}

	assert.Equal(t, 0, Run(build, signalled(), zerolog.Nop()))
	assert.True(t, fs.listenCalled)
	assert.True(t, fs.shutdownCalled)
	assert.False(t, fs.closeCalled, "graceful shutdown should not force close")
	assert.True(t, cleanupCalled)
	assert.LessOrEqual(t, fs.gotDeadline, 3*time.Second)
	assert.Greater(t, fs.gotDeadline, 2*time.Second)
}

func TestRun_ZeroTimeout_UsesDefault(t *testing.T) {
	fs := &fakeServer{addr: ":0", listenErr: http.ErrServerClosed}
	build := func() (httpServer, func(), error) { return fs, func() {}, nil }

	assert.Equal(t, 0, Run(build, signalled(), zerolog.Nop()))
	assert.Greater(t, fs.gotDeadline, defaultShutdownTimeout-time.Second)
}

func TestRun_OnServerCrash_Return1(t *testing.T) {
	fs := &fakeServer{addr: ":0", listenErr: errors.New("address already in use")}
	cleanupCalled := false
	build := func() (httpServer, func(), error) {
		return fs, func() { cleanupCalled = true }, nil
	}

	assert.Equal(t, 1, Run(build, make(chan os.Signal, 1), zerolog.Nop()))
	assert.True(t, fs.listenCalled)
	assert.False(t, fs.shutdownCalled)
	assert.True(t, cleanupCalled)
}

func TestRun_ShutdownFail_ForcesClose(t *testing.T) {
	fs := &fakeServer{
		addr:        ":0",
		listenErr:   http.ErrServerClosed,
		shutdownErr: errors.New("shutdown failed"),
	}
	build := func() (httpServer, func(), error) { return fs, func() {}, nil }

	assert.Equal(t, 0, Run(build, signalled(), zerolog.Nop()))
	assert.True(t, fs.shutdownCalled)
	assert.True(t, fs.closeCalled)
}
