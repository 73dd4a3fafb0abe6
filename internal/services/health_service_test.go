package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"callreport/internal/category"
	"callreport/internal/session"
)

func TestHealthService(t *testing.T) {
	ctx := context.Background()
	sessions := session.NewStore(session.Options{TTL: time.Minute, MaxEntries: 1, Logger: testLogger()})
	hs := NewHealthService("1.2.3", "2024-01-02", sessions, category.NewStore(category.Default()), testLogger())

	assert.Equal(t, "ok", hs.HealthCheck(ctx).Status)
	assert.Equal(t, "alive", hs.LivenessCheck(ctx).Status)

	ready := hs.ReadinessCheck(ctx)
	assert.Equal(t, "ready", ready.Status)
	assert.Contains(t, ready.Services, "sessions")
	assert.Contains(t, ready.Services, "categories")

	v := hs.Version()
	assert.Equal(t, "1.2.3", v["version"])
	assert.Equal(t, "2024-01-02", v["build_time"])
}

func TestHealthService_NotReady(t *testing.T) {
	hs := NewHealthService("dev", "", nil, category.NewStore(category.New(nil)), testLogger())

	ready := hs.ReadinessCheck(context.Background())
	assert.Equal(t, "not_ready", ready.Status)
	assert.Equal(t, "not_ready", ready.Services["sessions"].(ServiceHealth).Status)
	assert.Equal(t, "not_ready", ready.Services["categories"].(ServiceHealth).Status)
}
