package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/wapilot/internal/notification/entity"
	"github.com/shandysiswandi/wapilot/internal/pkg/clock"
	"github.com/shandysiswandi/wapilot/internal/pkg/goerror"
	"github.com/shandysiswandi/wapilot/internal/pkg/instrument"
	"github.com/shandysiswandi/wapilot/internal/pkg/session"
	"github.com/shandysiswandi/wapilot/internal/pkg/validator"
	"github.com/shandysiswandi/wapilot/internal/shared/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	mu      sync.Mutex
	lists   map[string][]entity.Notification
	getErr  error
	saveErr error
	saves   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{lists: map[string][]entity.Notification{}}
}

func (f *fakeCache) GetNotifications(_ context.Context, owner string) ([]entity.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return append([]entity.Notification(nil), f.lists[owner]...), nil
}

func (f *fakeCache) SaveNotifications(_ context.Context, owner string, list []entity.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.lists[owner] = append([]entity.Notification(nil), list...)
	return nil
}

func (f *fakeCache) DeleteNotifications(_ context.Context, owner string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.lists, owner)
	return nil
}

type seqID struct {
	mu sync.Mutex
	n  int
}

func (s *seqID) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("n-%d", s.n)
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestUsecase(t *testing.T) (*Usecase, *fakeCache, *clock.FrozenClocker) {
	t.Helper()

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	repo := newFakeCache()
	clk := clock.NewFrozen(t0)

	return NewNotification(Dependency{
		RepoCache:  repo,
		UUID:       &seqID{},
		Clock:      clk,
		Validator:  v,
		Instrument: instrument.NewNoop(),
	}), repo, clk
}

func ownerCtx(sid string) context.Context {
	return session.WithID(context.Background(), sid)
}

var welcome = AddInput{
	Type:     "info",
	Title:    "Welcome",
	Message:  "Thanks for joining",
	Category: "welcome",
}

func TestUsecase_Add(t *testing.T) {
	t.Run("RequiresSession", func(t *testing.T) {
		uc, _, _ := newTestUsecase(t)

		_, err := uc.Add(context.Background(), welcome)

		var gerr *goerror.Error
		require.ErrorAs(t, err, &gerr)
		assert.Equal(t, goerror.CodeUnauthorized, gerr.Code())
	})

	t.Run("InvalidInput", func(t *testing.T) {
		uc, repo, _ := newTestUsecase(t)
		in := welcome
		in.Category = "gossip"

		_, err := uc.Add(ownerCtx("sid"), in)

		var gerr *goerror.Error
		require.ErrorAs(t, err, &gerr)
		assert.Equal(t, goerror.TypeValidation, gerr.Type())
		assert.Zero(t, repo.saves)
	})

	t.Run("AddsThenDeduplicates", func(t *testing.T) {
		// Arrange
		uc, repo, clk := newTestUsecase(t)
		ctx := ownerCtx("sid")

		// Act
		first, err := uc.Add(ctx, welcome)
		require.NoError(t, err)
		clk.Add(4 * time.Minute)
		second, err := uc.Add(ctx, welcome)
		require.NoError(t, err)

		// Assert
		assert.True(t, first.Added)
		assert.Equal(t, "n-1", first.Notification.ID)
		assert.Equal(t, t0, first.Notification.Timestamp)
		assert.False(t, first.Notification.Read)
		assert.Equal(t, 1, first.UnreadCount)

		assert.False(t, second.Added)
		assert.Equal(t, "n-1", second.Notification.ID)
		assert.Len(t, repo.lists["sid"], 1)
		assert.Equal(t, 2, repo.saves)
	})

	t.Run("DuplicateWindowExpires", func(t *testing.T) {
		uc, repo, clk := newTestUsecase(t)
		ctx := ownerCtx("sid")

		_, err := uc.Add(ctx, welcome)
		require.NoError(t, err)
		clk.Add(5 * time.Minute)
		out, err := uc.Add(ctx, welcome)
		require.NoError(t, err)

		assert.True(t, out.Added)
		require.Len(t, repo.lists["sid"], 2)
		assert.Equal(t, out.Notification.ID, repo.lists["sid"][0].ID)
	})

	t.Run("SaveFailureIsSwallowed", func(t *testing.T) {
		uc, repo, _ := newTestUsecase(t)
		repo.saveErr = errors.New("redis down")

		out, err := uc.Add(ownerCtx("sid"), welcome)

		require.NoError(t, err)
		assert.True(t, out.Added)
	})

	t.Run("OwnersAreIsolated", func(t *testing.T) {
		uc, repo, _ := newTestUsecase(t)

		_, err := uc.Add(ownerCtx("a"), welcome)
		require.NoError(t, err)
		_, err = uc.Add(ownerCtx("b"), welcome)
		require.NoError(t, err)

		assert.Len(t, repo.lists["a"], 1)
		assert.Len(t, repo.lists["b"], 1)
	})
}

func TestUsecase_List(t *testing.T) {
	t.Run("FailsSoft", func(t *testing.T) {
		uc, repo, _ := newTestUsecase(t)
		repo.getErr = errors.New("malformed")

		out, err := uc.List(ownerCtx("sid"))

		require.NoError(t, err)
		assert.Empty(t, out.Notifications)
		assert.Zero(t, out.UnreadCount)
	})

	t.Run("DropsExpired", func(t *testing.T) {
		// Arrange
		uc, repo, _ := newTestUsecase(t)
		repo.lists["sid"] = []entity.Notification{
			{ID: "fresh", Timestamp: t0.Add(-time.Hour)},
			{ID: "stale", Timestamp: t0.Add(-8 * 24 * time.Hour)},
			{ID: "pinned", Timestamp: t0.Add(-8 * 24 * time.Hour), Persistent: true, Read: true},
		}

		// Act
		out, err := uc.List(ownerCtx("sid"))

		// Assert
		require.NoError(t, err)
		require.Len(t, out.Notifications, 2)
		assert.Equal(t, "fresh", out.Notifications[0].ID)
		assert.Equal(t, "pinned", out.Notifications[1].ID)
		assert.Equal(t, 1, out.UnreadCount)
	})
}

func TestUsecase_Actions(t *testing.T) {
	setup := func(t *testing.T) (*Usecase, *fakeCache, context.Context) {
		uc, repo, _ := newTestUsecase(t)
		repo.lists["sid"] = []entity.Notification{
			{ID: "a", Timestamp: t0},
			{ID: "b", Timestamp: t0},
		}
		return uc, repo, ownerCtx("sid")
	}

	t.Run("MarkRead", func(t *testing.T) {
		uc, repo, ctx := setup(t)

		require.NoError(t, uc.MarkRead(ctx, MarkReadInput{ID: "b"}))

		assert.True(t, repo.lists["sid"][1].Read)
		n, err := uc.UnreadCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("MarkReadNotFound", func(t *testing.T) {
		uc, _, ctx := setup(t)

		err := uc.MarkRead(ctx, MarkReadInput{ID: "zzz"})

		var gerr *goerror.Error
		require.ErrorAs(t, err, &gerr)
		assert.Equal(t, goerror.CodeNotFound, gerr.Code())
	})

	t.Run("MarkAllRead", func(t *testing.T) {
		uc, _, ctx := setup(t)

		require.NoError(t, uc.MarkAllRead(ctx))

		n, err := uc.UnreadCount(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("Remove", func(t *testing.T) {
		uc, repo, ctx := setup(t)

		require.NoError(t, uc.Remove(ctx, RemoveInput{ID: "a"}))

		require.Len(t, repo.lists["sid"], 1)
		assert.Equal(t, "b", repo.lists["sid"][0].ID)
	})

	t.Run("RemoveValidation", func(t *testing.T) {
		uc, _, ctx := setup(t)

		err := uc.Remove(ctx, RemoveInput{})

		var gerr *goerror.Error
		require.ErrorAs(t, err, &gerr)
		assert.Equal(t, goerror.TypeValidation, gerr.Type())
	})

	t.Run("Clear", func(t *testing.T) {
		uc, repo, ctx := setup(t)

		require.NoError(t, uc.Clear(ctx))

		assert.NotContains(t, repo.lists, "sid")
	})
}

func TestUsecase_Stream(t *testing.T) {
	// Arrange
	uc, _, _ := newTestUsecase(t)
	ctx, cancel := context.WithCancel(ownerCtx("sid"))
	stream, err := uc.StreamNotifications(ctx)
	require.NoError(t, err)

	// Act
	_, err = uc.Add(ownerCtx("sid"), welcome)
	require.NoError(t, err)
	_, err = uc.Add(ownerCtx("other"), welcome)
	require.NoError(t, err)

	// Assert
	evt := <-stream
	assert.Equal(t, StreamActionAdded, evt.Action)
	require.NotNil(t, evt.Notification)
	assert.Equal(t, "Welcome", evt.Notification.Title)
	assert.Equal(t, 1, evt.UnreadCount)

	cancel()
	for range stream {
		t.Fatal("unexpected event for another owner")
	}
}

func TestUsecase_ConsumeConnect(t *testing.T) {
	t.Run("Connected", func(t *testing.T) {
		uc, repo, _ := newTestUsecase(t)

		err := uc.ConsumeConnectWhatsApp(context.Background(), ConsumeConnectWhatsAppInput{
			SessionID: "sid",
			Outcome:   event.ConnectOutcomeConnected,
		})

		require.NoError(t, err)
		require.Len(t, repo.lists["sid"], 1)
		n := repo.lists["sid"][0]
		assert.Equal(t, entity.TypeSuccess, n.Type)
		assert.Equal(t, entity.CategoryWhatsApp, n.Category)
		assert.Equal(t, "WhatsApp connected", n.Title)
	})

	t.Run("RegistrationFailed", func(t *testing.T) {
		uc, repo, _ := newTestUsecase(t)

		err := uc.ConsumeConnectWhatsApp(context.Background(), ConsumeConnectWhatsAppInput{
			SessionID: "sid",
			Outcome:   event.ConnectOutcomeRegistrationFailed,
			Message:   "Phone number already registered",
		})

		require.NoError(t, err)
		n := repo.lists["sid"][0]
		assert.Equal(t, entity.CategoryError, n.Category)
		assert.Equal(t, "Phone number already registered", n.Message)
	})

	t.Run("InvalidEventDropped", func(t *testing.T) {
		uc, repo, _ := newTestUsecase(t)

		err := uc.ConsumeConnectWhatsApp(context.Background(), ConsumeConnectWhatsAppInput{Outcome: "connected"})

		require.NoError(t, err)
		assert.Empty(t, repo.lists)
	})

	t.Run("Connector", func(t *testing.T) {
		uc, repo, _ := newTestUsecase(t)

		err := uc.ConsumeConnectConnector(context.Background(), ConsumeConnectConnectorInput{
			SessionID: "sid",
			Provider:  "google_sheets",
			Connected: true,
		})

		require.NoError(t, err)
		assert.Equal(t, "Google Sheets connected", repo.lists["sid"][0].Title)
	})
}
