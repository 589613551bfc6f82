//go:build integration

package actors_test

import (
	"context"
	"testing"
	"time"

	"github.com/ariefcatur/go-donation-fulfillment/internal/actors"
	"github.com/ariefcatur/go-donation-fulfillment/internal/sentinel"
	"github.com/ariefcatur/go-donation-fulfillment/internal/testutil/containers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCachedDirectoryExpires(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	rdb := containers.NewRedis(t)

	next := actors.NewStaticDirectory(actors.Actor{ID: "t9", Role: actors.RoleTransporter, DisplayName: "Old Name"})
	dir := &actors.CachedDirectory{Next: next, Redis: rdb, TTL: time.Second, Log: zap.NewNop()}

	a, err := dir.Resolve(ctx, "t9")
	require.NoError(t, err)
	assert.Equal(t, "Old Name", a.DisplayName)

	next.Put(actors.Actor{ID: "t9", Role: actors.RoleInstitute, DisplayName: "New Name"})
	a, err = dir.Resolve(ctx, "t9")
	require.NoError(t, err)
	assert.Equal(t, actors.RoleTransporter, a.Role, "served from cache")

	assert.Eventually(t, func() bool {
		a, err := dir.Resolve(ctx, "t9")
		return err == nil && a.Role == actors.RoleInstitute
	}, 5*time.Second, 100*time.Millisecond)

	_, err = dir.Resolve(ctx, "ghost")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
