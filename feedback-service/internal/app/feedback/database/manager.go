package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/description"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"guestfeedback/feedback-service/internal/app/feedback/config"
	"guestfeedback/pkg/logger"
	"guestfeedback/pkg/metrics"
)

const (
	serviceName    = "feedback-service"
	connectTimeout = 30 * time.Second
)

// Нулевой ServerKind драйвер выставляет серверу, о котором ничего не известно
const unknownServerKind description.ServerKind = 0

var ErrClosed = errors.New("database manager is closed")

var errAttemptSuperseded = errors.New("connection attempt superseded")

// ConnectFunc открывает клиент MongoDB. onDisconnect вызывается, когда драйвер
// перестаёт видеть хотя бы один доступный сервер.
type ConnectFunc func(ctx context.Context, onDisconnect func()) (*mongo.Client, error)

// ConnectHook выполняется после каждого успешного подключения (индексы, схемы)
type ConnectHook func(ctx context.Context, db *mongo.Database) error

type attempt struct {
	done   chan struct{}
	client *mongo.Client
	err    error
}

// Manager владеет единственным клиентом MongoDB процесса.
// Client подключается лениво; параллельные вызовы ждут одну и ту же попытку.
type Manager struct {
	mu         sync.Mutex
	client     *mongo.Client
	pending    *attempt
	generation uint64
	closed     bool
	hooks      []ConnectHook

	dbName  string
	connect ConnectFunc
}

func NewManager(cfg config.MongoDBConfig) *Manager {
	return NewManagerWithConnector(cfg.Database, func(ctx context.Context, onDisconnect func()) (*mongo.Client, error) {
		return Dial(ctx, cfg, onDisconnect)
	})
}

func NewManagerWithConnector(dbName string, connect ConnectFunc) *Manager {
	return &Manager{
		dbName:  dbName,
		connect: connect,
	}
}

// OnConnect регистрирует hook; регистрировать нужно до первого Client
func (m *Manager) OnConnect(hook ConnectHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook)
}

// Client возвращает закешированный клиент или дожидается подключения
func (m *Manager) Client(ctx context.Context) (*mongo.Client, error) {
	for {
		client, a, err := m.acquire()
		if err != nil || client != nil {
			return client, err
		}

		select {
		case <-a.done:
			// попытку сбросил disconnect, пока она шла: начинаем новую
			if errors.Is(a.err, errAttemptSuperseded) {
				continue
			}
			return a.client, a.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// acquire отдаёт закешированный клиент либо текущую попытку, при необходимости запуская её
func (m *Manager) acquire() (*mongo.Client, *attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, nil, ErrClosed
	}
	if m.client != nil {
		return m.client, nil, nil
	}

	a := m.pending
	if a == nil {
		a = &attempt{done: make(chan struct{})}
		m.pending = a
		m.generation++
		go m.run(a, m.generation, append([]ConnectHook(nil), m.hooks...))
	}
	return nil, a, nil
}

// Database возвращает базу из конфигурации поверх общего клиента
func (m *Manager) Database(ctx context.Context) (*mongo.Database, error) {
	client, err := m.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Database(m.dbName), nil
}

// Ping проверяет доступность MongoDB (health check)
func (m *Manager) Ping(ctx context.Context) error {
	client, err := m.Client(ctx)
	if err != nil {
		return err
	}
	return client.Ping(ctx, readpref.Primary())
}

// run выполняет попытку подключения вне контекста вызывающего,
// чтобы отмена одного запроса не роняла остальных ожидающих
func (m *Manager) run(a *attempt, generation uint64, hooks []ConnectHook) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	start := time.Now()
	client, err := m.connect(ctx, func() { m.handleDisconnect(generation) })
	metrics.RecordConnectAttempt(serviceName, err)

	if err == nil {
		db := client.Database(m.dbName)
		for _, hook := range hooks {
			if hookErr := hook(ctx, db); hookErr != nil {
				logger.Warn().Err(hookErr).Msg("MongoDB connect hook failed")
			}
		}
	}

	m.mu.Lock()
	current := m.pending == a
	closed := m.closed
	if current {
		m.pending = nil
		if err == nil {
			m.client = client
		}
	}
	m.mu.Unlock()

	switch {
	case err != nil:
		logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("Failed to connect to MongoDB")
	case current:
		logger.Info().Str("database", m.dbName).Dur("duration", time.Since(start)).Msg("Connected to MongoDB")
	default:
		// попытку отменили Close или disconnect: клиент никому не достанется
		m.release(client)
		client = nil
		err = errAttemptSuperseded
		if closed {
			err = ErrClosed
		}
	}

	a.client, a.err = client, err
	close(a.done)
}

func (m *Manager) release(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		logger.Debug().Err(err).Msg("Error releasing abandoned MongoDB client")
	}
}

// handleDisconnect сбрасывает кеш, следующий Client подключится заново.
// События от клиентов предыдущих поколений игнорируются.
func (m *Manager) handleDisconnect(generation uint64) {
	m.mu.Lock()
	if generation != m.generation || m.closed {
		m.mu.Unlock()
		return
	}
	stale := m.client
	m.client = nil
	m.pending = nil
	m.generation++
	m.mu.Unlock()

	logger.Warn().Msg("MongoDB disconnected, connection will be re-established on next request")

	if stale != nil {
		go m.release(stale)
	}
}

// Close закрывает соединение; после Close менеджер не переподключается.
// Если подключение ещё идёт, Close дожидается его и закрывает полученный клиент.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	client := m.client
	inFlight := m.pending
	m.client = nil
	m.pending = nil
	m.closed = true
	m.generation++
	m.mu.Unlock()

	if inFlight != nil {
		select {
		case <-inFlight.done:
		case <-ctx.Done():
			return fmt.Errorf("mongodb connection attempt still in flight: %w", ctx.Err())
		}
	}

	if client == nil {
		return nil
	}
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from mongodb: %w", err)
	}
	return nil
}

// Dial подключается к MongoDB, пингует primary и подписывается на изменения топологии
func Dial(ctx context.Context, cfg config.MongoDBConfig, onDisconnect func()) (*mongo.Client, error) {
	monitor := &event.ServerMonitor{
		TopologyDescriptionChanged: func(e *event.TopologyDescriptionChangedEvent) {
			if hasAvailableServer(e.PreviousDescription) && !hasAvailableServer(e.NewDescription) {
				onDisconnect()
			}
		},
	}

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout).
		SetSocketTimeout(cfg.SocketTimeout).
		SetServerMonitor(monitor)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return client, nil
}

func hasAvailableServer(topology description.Topology) bool {
	for _, server := range topology.Servers {
		if server.Kind != unknownServerKind {
			return true
		}
	}
	return false
}
