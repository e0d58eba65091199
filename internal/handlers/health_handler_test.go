package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestHealthCheck(t *testing.T) {
	ok := func() error { return nil }
	down := func() error { return errors.New("connection refused") }
	redisDown := func(context.Context) error { return errors.New("i/o timeout") }

	tests := []struct {
		name     string
		pingDB   func() error
		pingLock func(context.Context) error
		wantCode int
		wantLock string
	}{
		{name: "in-process lock", pingDB: ok, wantCode: fiber.StatusOK, wantLock: "in-process"},
		{name: "redis healthy", pingDB: ok, pingLock: func(context.Context) error { return nil }, wantCode: fiber.StatusOK, wantLock: "redis ok"},
		{name: "redis down", pingDB: ok, pingLock: redisDown, wantCode: fiber.StatusServiceUnavailable, wantLock: "redis unhealthy: i/o timeout"},
		{name: "db down", pingDB: down, wantCode: fiber.StatusServiceUnavailable, wantLock: "in-process"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/health", NewHealthHandler(tc.pingDB, tc.pingLock).Check)

			status, body := doJSON(t, app, "GET", "/health", "")
			assert.Equal(t, tc.wantCode, status)
			assert.Equal(t, tc.wantLock, body["lock"])
		})
	}
}
