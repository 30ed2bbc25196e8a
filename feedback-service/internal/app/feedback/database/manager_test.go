package database

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/description"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// newOfflineClient создаёт клиент без обращения к серверу: mongo.Connect не ждёт handshake
func newOfflineClient(t *testing.T) *mongo.Client {
	t.Helper()
	client, err := mongo.Connect(context.Background(),
		options.Client().ApplyURI("mongodb://127.0.0.1:1").SetServerSelectionTimeout(100*time.Millisecond))
	require.NoError(t, err)
	return client
}

func TestClient_ConcurrentCallersShareOneAttempt(t *testing.T) {
	client := newOfflineClient(t)
	release := make(chan struct{})
	var calls int32

	manager := NewManagerWithConnector("feedback", func(ctx context.Context, onDisconnect func()) (*mongo.Client, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return client, nil
	})
	defer manager.Close(context.Background())

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*mongo.Client, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = manager.Client(context.Background())
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for i := 0; i < callers; i++ {
		assert.NoError(t, errs[i])
		assert.Same(t, client, results[i])
	}
}

func TestClient_ReusesCachedHandle(t *testing.T) {
	client := newOfflineClient(t)
	var calls int32

	manager := NewManagerWithConnector("feedback", func(ctx context.Context, onDisconnect func()) (*mongo.Client, error) {
		atomic.AddInt32(&calls, 1)
		return client, nil
	})
	defer manager.Close(context.Background())

	for i := 0; i < 3; i++ {
		got, err := manager.Client(context.Background())
		require.NoError(t, err)
		assert.Same(t, client, got)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_FailedAttemptIsRetried(t *testing.T) {
	client := newOfflineClient(t)
	var calls int32

	manager := NewManagerWithConnector("feedback", func(ctx context.Context, onDisconnect func()) (*mongo.Client, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("server selection timeout")
		}
		return client, nil
	})
	defer manager.Close(context.Background())

	_, err := manager.Client(context.Background())
	assert.Error(t, err)

	got, err := manager.Client(context.Background())
	assert.NoError(t, err)
	assert.Same(t, client, got)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_DisconnectForcesReconnect(t *testing.T) {
	first := newOfflineClient(t)
	second := newOfflineClient(t)
	var calls int32
	var disconnects []func()

	manager := NewManagerWithConnector("feedback", func(ctx context.Context, onDisconnect func()) (*mongo.Client, error) {
		disconnects = append(disconnects, onDisconnect)
		if atomic.AddInt32(&calls, 1) == 1 {
			return first, nil
		}
		return second, nil
	})
	defer manager.Close(context.Background())

	got, err := manager.Client(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, got)

	disconnects[0]()

	got, err = manager.Client(context.Background())
	require.NoError(t, err)
	assert.Same(t, second, got)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	// событие от старого клиента не сбрасывает новый
	disconnects[0]()
	got, err = manager.Client(context.Background())
	require.NoError(t, err)
	assert.Same(t, second, got)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_CallerCancellationDoesNotAbortAttempt(t *testing.T) {
	client := newOfflineClient(t)
	release := make(chan struct{})
	var calls int32

	manager := NewManagerWithConnector("feedback", func(ctx context.Context, onDisconnect func()) (*mongo.Client, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return client, nil
	})
	defer manager.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := manager.Client(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	got, err := manager.Client(context.Background())
	assert.NoError(t, err)
	assert.Same(t, client, got)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_RunsConnectHooks(t *testing.T) {
	client := newOfflineClient(t)
	manager := NewManagerWithConnector("feedback", func(ctx context.Context, onDisconnect func()) (*mongo.Client, error) {
		return client, nil
	})
	defer manager.Close(context.Background())

	var hooked string
	manager.OnConnect(func(ctx context.Context, db *mongo.Database) error {
		hooked = db.Name()
		return errors.New("index already exists")
	})

	db, err := manager.Database(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "feedback", db.Name())
	assert.Equal(t, "feedback", hooked)
}

func TestClose_RejectsFurtherUse(t *testing.T) {
	client := newOfflineClient(t)
	manager := NewManagerWithConnector("feedback", func(ctx context.Context, onDisconnect func()) (*mongo.Client, error) {
		return client, nil
	})

	_, err := manager.Client(context.Background())
	require.NoError(t, err)

	require.NoError(t, manager.Close(context.Background()))

	_, err = manager.Client(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestHasAvailableServer(t *testing.T) {
	assert.False(t, hasAvailableServer(description.Topology{}))
	assert.False(t, hasAvailableServer(description.Topology{Servers: []description.Server{{}}}))
	assert.True(t, hasAvailableServer(description.Topology{Servers: []description.Server{{Kind: description.Standalone}}}))
}

func TestClose_ReleasesClientStillConnecting(t *testing.T) {
	client := newOfflineClient(t)
	started := make(chan struct{})
	release := make(chan struct{})

	manager := NewManagerWithConnector("feedback", func(ctx context.Context, onDisconnect func()) (*mongo.Client, error) {
		close(started)
		<-release
		return client, nil
	})

	waiterErr := make(chan error, 1)
	go func() {
		_, err := manager.Client(context.Background())
		waiterErr <- err
	}()
	<-started

	closeErr := make(chan error, 1)
	go func() { closeErr <- manager.Close(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	close(release)

	require.NoError(t, <-closeErr)
	assert.ErrorIs(t, <-waiterErr, ErrClosed)

	// клиент уже закрыт менеджером
	assert.ErrorIs(t, client.Disconnect(context.Background()), mongo.ErrClientDisconnected)
}

func TestClient_DisconnectDuringAttemptStartsNewOne(t *testing.T) {
	first := newOfflineClient(t)
	second := newOfflineClient(t)
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32

	manager := NewManagerWithConnector("feedback", func(ctx context.Context, onDisconnect func()) (*mongo.Client, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
			<-release
			onDisconnect()
			return first, nil
		}
		return second, nil
	})
	defer manager.Close(context.Background())

	got := make(chan *mongo.Client, 1)
	go func() {
		c, _ := manager.Client(context.Background())
		got <- c
	}()
	<-started
	close(release)

	assert.Same(t, second, <-got)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.ErrorIs(t, first.Disconnect(context.Background()), mongo.ErrClientDisconnected)
}
