package simhost_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viralforge/economy-bridge/internal/adapters/simhost"
	"github.com/viralforge/economy-bridge/internal/domain"
)

type published struct {
	eventType string
	payload   []byte
	key       string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, payload []byte, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, published{eventType: eventType, payload: payload, key: key})
	return nil
}

func TestDirectoryTracksSessionsAndNames(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := simhost.NewDirectory(&recordingPublisher{})
	avatar := uuid.New()
	region := uuid.New()

	_, ok := dir.LocateSession(ctx, avatar)
	assert.False(t, ok)
	assert.Equal(t, "Unknown User", dir.UserName(ctx, avatar))

	dir.AddSession(domain.Session{AvatarID: avatar, AvatarName: "Kunta Kinte", RegionID: region})
	session, ok := dir.LocateSession(ctx, avatar)
	require.True(t, ok)
	assert.Equal(t, region, session.RegionID)

	removed, ok := dir.RemoveSession(avatar)
	require.True(t, ok)
	assert.Equal(t, avatar, removed.AvatarID)
	_, ok = dir.LocateSession(ctx, avatar)
	assert.False(t, ok)
	assert.Equal(t, "Kunta Kinte", dir.UserName(ctx, avatar), "names outlive sessions")
}

func TestDirectoryRemoveRegionDropsItsSessions(t *testing.T) {
	t.Parallel()

	dir := simhost.NewDirectory(&recordingPublisher{})
	regionA, regionB := uuid.New(), uuid.New()
	dir.AddSession(domain.Session{AvatarID: uuid.New(), RegionID: regionA})
	dir.AddSession(domain.Session{AvatarID: uuid.New(), RegionID: regionA})
	kept := uuid.New()
	dir.AddSession(domain.Session{AvatarID: kept, RegionID: regionB})

	assert.Equal(t, 2, dir.RemoveRegion(regionA))
	_, ok := dir.LocateSession(context.Background(), kept)
	assert.True(t, ok)
}

func TestDirectoryPublishesInteractionEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pub := &recordingPublisher{}
	dir := simhost.NewDirectory(pub)
	avatar := uuid.New()
	region := uuid.New()
	dir.AddSession(domain.Session{AvatarID: avatar, RegionID: region})

	require.NoError(t, dir.SendDialog(ctx, avatar, "The currency service is not available. Please try again later."))
	require.NoError(t, dir.SendAlert(ctx, region, avatar, "balance low"))
	require.NoError(t, dir.SendURL(ctx, domain.URLPrompt{RegionID: region, AvatarID: avatar, ObjectName: "OMEconomy", Message: "open", URL: "https://example.com"}))

	require.Len(t, pub.events, 3)
	assert.Equal(t, simhost.EventDialog, pub.events[0].eventType)
	assert.Equal(t, avatar.String(), pub.events[0].key)
	assert.Equal(t, simhost.EventAlert, pub.events[1].eventType)
	assert.Equal(t, simhost.EventLoadURL, pub.events[2].eventType)

	var dialog simhost.Envelope
	require.NoError(t, json.Unmarshal(pub.events[0].payload, &dialog))
	assert.Equal(t, region, dialog.RegionID, "dialog names the hosting region")

	var env simhost.Envelope
	require.NoError(t, json.Unmarshal(pub.events[1].payload, &env))
	assert.Equal(t, "alert", env.Kind)
	assert.Equal(t, region, env.RegionID)
	assert.Equal(t, "balance low", env.Message)
}

func TestDirectoryWrapsPublishFailures(t *testing.T) {
	t.Parallel()

	dir := simhost.NewDirectory(&recordingPublisher{err: errors.New("broker down")})
	err := dir.SendChat(context.Background(), uuid.New(), domain.ChatMessage{Message: "hi"})
	assert.ErrorIs(t, err, domain.ErrDeliveryFailed)
}
