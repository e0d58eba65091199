package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/platformapi"
)

func TestResolveOwnerPerEntityType(t *testing.T) {
	p := newFakePlatform()
	p.put(models.EntityUser, "u1", platformapi.EntitySummaryResponse{Name: "Jane", Avatar: "a.png", ImageURL: "fallback.png"})
	p.put(models.EntityStartup, "s1", platformapi.EntitySummaryResponse{Name: "Acme", ImageURL: "cover.png", OwnerID: "founder-1", Status: "ACTIVE"})
	p.put(models.EntityChatMessage, "m1", platformapi.EntitySummaryResponse{Name: "hello", AuthorID: "author-1"})
	r := NewEntityResolver(p)

	user, err := r.Resolve(context.Background(), models.EntityUser, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.OwnerID)
	assert.Equal(t, "a.png", user.ImageURL)

	startup, err := r.Resolve(context.Background(), models.EntityStartup, "s1")
	require.NoError(t, err)
	assert.Equal(t, "founder-1", startup.OwnerID)
	assert.Equal(t, "cover.png", startup.ImageURL)
	assert.Equal(t, "ACTIVE", startup.CurrentStatus)

	msg, err := r.Resolve(context.Background(), models.EntityChatMessage, "m1")
	require.NoError(t, err)
	assert.Equal(t, "author-1", msg.OwnerID)
}

func TestResolveMissingEntity(t *testing.T) {
	r := NewEntityResolver(newFakePlatform())

	_, err := r.Resolve(context.Background(), models.EntityStartup, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestResolveUnknownType(t *testing.T) {
	p := newFakePlatform()
	p.put(models.EntityType("DEAL"), "d1", platformapi.EntitySummaryResponse{})
	r := NewEntityResolver(p)

	_, err := r.Resolve(context.Background(), models.EntityType("DEAL"), "d1")
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}
