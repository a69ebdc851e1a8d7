package monitor

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/taskreminder/internal/infrastructure/alarm"
)

// CheckFunc pings one dependency.
type CheckFunc func(ctx context.Context) error

type Monitor struct {
	checks map[string]CheckFunc
	alarms *alarm.Store

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

func New(interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		checks:   make(map[string]CheckFunc),
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

// AddCheck registers a named dependency. Call before Start.
func (m *Monitor) AddCheck(name string, fn CheckFunc) {
	if fn != nil {
		m.checks[name] = fn
	}
}

func (m *Monitor) WatchSQL(name string, db *sql.DB) {
	if db != nil {
		m.AddCheck(name, db.PingContext)
	}
}

func (m *Monitor) WatchPostgres(pool *pgxpool.Pool) {
	if pool != nil {
		m.AddCheck("postgres", pool.Ping)
	}
}

func (m *Monitor) WatchRedis(client *redislib.Client) {
	if client != nil {
		m.AddCheck("redis", func(ctx context.Context) error { return client.Ping(ctx).Err() })
	}
}

func (m *Monitor) WatchAlarms(store *alarm.Store) {
	if store == nil {
		return
	}
	m.alarms = store
	m.AddCheck("alarms", func(context.Context) error {
		_, err := store.Size()
		return err
	})
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Monitor) IsOnline() bool {
	return m.GetStatus().Healthy()
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	components := make(map[string]bool, len(m.status.Components))
	for k, v := range m.status.Components {
		components[k] = v
	}
	s := m.status
	s.Components = components
	return s
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Refresh()
	for {
		select {
		case <-ticker.C:
			m.Refresh()
		case <-m.stopCh:
			return
		}
	}
}

// Refresh runs every check once and stores the result.
func (m *Monitor) Refresh() {
	status := Status{
		Components: make(map[string]bool, len(m.checks)),
		LastCheck:  time.Now(),
	}

	for name, check := range m.checks {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := check(ctx)
		cancel()
		if err != nil {
			m.logger.Warn("health check failed", zap.String("component", name), zap.Error(err))
		}
		status.Components[name] = err == nil
	}

	if m.alarms != nil {
		if size, err := m.alarms.Size(); err == nil {
			status.AlarmsPending = size
		}
	}

	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
}
