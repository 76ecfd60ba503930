package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viralforge/economy-bridge/internal/application"
	"github.com/viralforge/economy-bridge/internal/domain"
)

func (f *fixture) session() domain.Session {
	return domain.Session{
		AvatarID:      receiverID,
		AvatarName:    "Dana Receiver",
		Viewer:        "Firestorm 6.6.17",
		ClientAddress: "203.0.113.7",
		RegionID:      f.region.ID,
	}
}

func TestOnEnterSendsClaimUser(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.gateway.handler = f.gatewayStub("abc123", nil)
	session := f.session()
	f.host.add(session)

	f.service.OnEnter(context.Background(), session)
	require.NoError(t, f.service.Close(context.Background()))

	claims := f.gateway.callsFor(domain.MethodClaimUser)
	require.Len(t, claims, 1)
	assert.Equal(t, domain.ParameterSet{
		"avatarUUID":    receiverID.String(),
		"avatarName":    "Dana Receiver",
		"language":      "ENG",
		"viewer":        "Firestorm 6.6.17",
		"clientIP":      "http://203.0.113.7/",
		"regionUUID":    f.region.ID.String(),
		"gridURL":       "http://world.dreamnation.net:8003/",
		"gridShortName": "dreamnation",
		"regionIP":      f.region.Address,
	}, claims[0].fields)
	assert.Empty(t, f.interaction.all())
}

func TestOnEnterWithoutResponseTellsAvatar(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.gateway.handler = func(string, domain.ParameterSet) (domain.GatewayResponse, error) {
		return nil, errUnreachable
	}
	session := f.session()
	f.host.add(session)

	f.service.OnEnter(context.Background(), session)
	require.NoError(t, f.service.Close(context.Background()))

	got := f.interaction.all()
	require.Len(t, got, 1)
	assert.Equal(t, "dialog", got[0].kind)
	assert.Equal(t, receiverID, got[0].to)
	assert.Equal(t, application.ServiceUnavailableMessage, got[0].message)
}

func TestOnEnterDoesNotWaitForGateway(t *testing.T) {
	t.Parallel()

	f := newFixture()
	release := make(chan struct{})
	f.gateway.handler = func(string, domain.ParameterSet) (domain.GatewayResponse, error) {
		<-release
		return domain.GatewayResponse{"success": "true"}, nil
	}
	session := f.session()

	done := make(chan struct{})
	go func() {
		f.service.OnEnter(context.Background(), session)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("OnEnter blocked on the gateway")
	}
	close(release)
	require.NoError(t, f.service.Close(context.Background()))
}

func TestOnEnterSaturatedPoolCountsAsNoResponse(t *testing.T) {
	t.Parallel()

	f := newFixture()
	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(2)
	f.gateway.handler = func(string, domain.ParameterSet) (domain.GatewayResponse, error) {
		started.Done()
		<-release
		return domain.GatewayResponse{}, nil
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		s := domain.Session{AvatarID: uuid.New(), RegionID: f.region.ID}
		f.host.add(s)
		f.service.OnEnter(ctx, s)
	}
	started.Wait()

	session := f.session()
	f.host.add(session)
	f.service.OnEnter(ctx, session)

	got := f.interaction.all()
	require.Len(t, got, 1)
	assert.Equal(t, receiverID, got[0].to)

	close(release)
	require.NoError(t, f.service.Close(ctx))
}

func TestOnEnterDepartedAvatarGetsNoDialog(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.gateway.handler = func(string, domain.ParameterSet) (domain.GatewayResponse, error) {
		return nil, errUnreachable
	}

	f.service.OnEnter(context.Background(), f.session())
	require.NoError(t, f.service.Close(context.Background()))
	assert.Empty(t, f.interaction.all())
}

func TestOnEnterInactiveRegionIsIgnored(t *testing.T) {
	t.Parallel()

	f := newFixture()
	session := f.session()
	session.RegionID = uuid.New()

	f.service.OnEnter(context.Background(), session)
	require.NoError(t, f.service.Close(context.Background()))
	assert.Empty(t, f.gateway.callsFor(domain.MethodClaimUser))
}

func TestOnLeaveIsBestEffort(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.gateway.handler = func(string, domain.ParameterSet) (domain.GatewayResponse, error) {
		return nil, errUnreachable
	}
	f.host.add(f.session())

	f.service.OnLeave(context.Background(), receiverID, uuid.Nil)

	calls := f.gateway.callsFor(domain.MethodLeaveUser)
	require.Len(t, calls, 1)
	assert.Equal(t, domain.ParameterSet{
		"avatarUUID": receiverID.String(),
		"regionUUID": f.region.ID.String(),
	}, calls[0].fields)
	assert.Empty(t, f.interaction.all())
}

func TestOnLeaveInactiveRegionSendsNothing(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.service.OnLeave(context.Background(), receiverID, uuid.New())
	assert.Empty(t, f.gateway.callsFor(domain.MethodLeaveUser))
}

func TestClaimPoolLimitsConcurrency(t *testing.T) {
	t.Parallel()

	pool := application.NewClaimPool(1)
	release := make(chan struct{})
	require.True(t, pool.TrySubmit(func() { <-release }))
	assert.False(t, pool.TrySubmit(func() {}))

	close(release)
	require.NoError(t, pool.Close(context.Background()))
	assert.False(t, pool.TrySubmit(func() {}), "closed pool accepts nothing")
}

func TestClaimPoolCloseHonoursDeadline(t *testing.T) {
	t.Parallel()

	pool := application.NewClaimPool(1)
	release := make(chan struct{})
	defer close(release)
	require.True(t, pool.TrySubmit(func() { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, pool.Close(ctx), context.DeadlineExceeded)
}
