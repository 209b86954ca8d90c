package main

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/mmynk/roomiesplit/internal/config"
	"github.com/mmynk/roomiesplit/internal/storage/badgerstore"
)

func testConfig(t *testing.T, port int) *config.Config {
	t.Helper()
	return &config.Config{
		Port:       port,
		Storage:    config.StorageBadger,
		MaxMembers: 5,
		JWTSecret:  strings.Repeat("s", 32),
		TokenTTL:   time.Hour,
		LoginSkew:  time.Minute,
		LogLevel:   "info",
	}
}

func TestRun_ListenFailureReturnsError(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer ln.Close()

	store, err := badgerstore.OpenInMemory()
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err = run(context.Background(), testConfig(t, ln.Addr().(*net.TCPAddr).Port), store, logger)
	if err == nil {
		t.Fatal("expected an error when the port is taken")
	}

	// The caller still owns the store and can close it.
	if err := store.Close(); err != nil {
		t.Errorf("failed to close store after run: %v", err)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	store, err := badgerstore.OpenInMemory()
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	go func() { done <- run(ctx, testConfig(t, port), store, logger) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
