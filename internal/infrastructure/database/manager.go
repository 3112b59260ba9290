package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bossbudget/usuarios-api/internal/domain/entity"
)

// Engine identifies which storage engine ended up live after bootstrap.
type Engine string

const (
	EngineMySQL  Engine = "mysql"
	EngineSQLite Engine = "sqlite"
)

// Bounded wait budget for readiness, kept from the former poll loop
// (10 attempts at 500ms).
const (
	readyAttempts = 10
	readyInterval = 500 * time.Millisecond
)

var (
	// ErrNotConnected is returned when a connection is requested before
	// bootstrap succeeded or after Close.
	ErrNotConnected = errors.New("la base de datos no está conectada")

	// ErrNotReady is returned when the readiness wait times out.
	ErrNotReady = errors.New("timeout esperando inicialización de base de datos")
)

// Options configures the storage bootstrap. An empty MySQLDSN skips the
// primary engine and goes straight to SQLite.
type Options struct {
	MySQLDSN        string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	LogSQL          bool
}

// Health describes the outcome of a connectivity probe.
type Health struct {
	Status    string `json:"status"`
	Engine    string `json:"engine"`
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}

// Manager owns the database connection. It attempts MySQL first and falls
// back to a local SQLite file when the primary is unreachable; whichever
// engine wins, the schema is synchronized non-destructively before the
// readiness signal fires. Construct one explicitly and inject it; there is
// no package-level instance.
type Manager struct {
	opts   Options
	logger *logrus.Logger

	ready   chan struct{}
	initErr error

	mu        sync.RWMutex
	db        *gorm.DB
	engine    Engine
	connected bool
	closeOnce sync.Once
}

// NewManager starts the bootstrap in the background and returns immediately.
// Callers wait on AwaitReady (or Ready) before using the connection.
func NewManager(opts Options, logger *logrus.Logger) *Manager {
	m := &Manager{opts: opts, logger: logger, ready: make(chan struct{})}
	go m.init()
	return m
}

func (m *Manager) init() {
	defer close(m.ready)

	db, engine, err := m.connect()
	if err != nil {
		m.initErr = err
		return
	}

	if err := m.configurePool(db); err != nil {
		m.initErr = fmt.Errorf("configurando pool de conexiones: %w", err)
		return
	}

	m.logger.Info("sincronizando esquema...")
	if err := db.AutoMigrate(&entity.User{}); err != nil {
		m.initErr = fmt.Errorf("sincronizando esquema: %w", err)
		return
	}

	m.mu.Lock()
	m.db = db
	m.engine = engine
	m.connected = true
	m.mu.Unlock()
	m.logger.WithField("engine", engine).Info("esquema sincronizado correctamente")
}

func (m *Manager) connect() (*gorm.DB, Engine, error) {
	gcfg := &gorm.Config{
		TranslateError: true,
		Logger:         m.gormLogger(),
	}

	if m.opts.MySQLDSN != "" {
		m.logger.Info("intentando conectar a MySQL...")
		db, err := gorm.Open(mysql.Open(m.opts.MySQLDSN), gcfg)
		if err == nil {
			err = m.ping(db)
		}
		if err == nil {
			m.logger.Info("conexión a MySQL exitosa")
			return db, EngineMySQL, nil
		}
		m.logger.WithError(err).Warn("no se pudo conectar a MySQL, usando SQLite local")
	}

	db, err := gorm.Open(sqlite.Open(m.opts.SQLitePath), gcfg)
	if err == nil {
		err = m.ping(db)
	}
	if err != nil {
		return nil, "", fmt.Errorf("conectando a SQLite: %w", err)
	}
	m.logger.WithField("path", m.opts.SQLitePath).Info("conexión a SQLite exitosa")
	return db, EngineSQLite, nil
}

func (m *Manager) ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func (m *Manager) configurePool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	maxOpen := m.opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 5
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	if m.opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(m.opts.MaxIdleConns)
	}
	if m.opts.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(m.opts.ConnMaxIdleTime)
	}
	if m.opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(m.opts.ConnMaxLifetime)
	}
	return nil
}

func (m *Manager) gormLogger() gormlogger.Interface {
	if m.opts.LogSQL {
		return gormlogger.Default.LogMode(gormlogger.Info)
	}
	return gormlogger.Default.LogMode(gormlogger.Silent)
}

// Ready is closed once bootstrap finished, successfully or not. After it is
// closed, AwaitReady reports the outcome without blocking.
func (m *Manager) Ready() <-chan struct{} { return m.ready }

// AwaitReady blocks until bootstrap completes, the context is canceled, or
// the bounded wait budget elapses.
func (m *Manager) AwaitReady(ctx context.Context) error {
	timer := time.NewTimer(readyAttempts * readyInterval)
	defer timer.Stop()
	select {
	case <-m.ready:
		return m.initErr
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrNotReady
	}
}

// DB returns the live connection, or ErrNotConnected when no engine is
// active.
func (m *Manager) DB() (*gorm.DB, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.connected {
		return nil, ErrNotConnected
	}
	return m.db, nil
}

// Engine reports which engine is live; empty before bootstrap completes.
func (m *Manager) Engine() Engine {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.engine
}

// HealthCheck probes the live connection.
func (m *Manager) HealthCheck(ctx context.Context) Health {
	m.mu.RLock()
	db, engine, connected := m.db, m.engine, m.connected
	m.mu.RUnlock()

	if !connected {
		h := Health{Status: "unhealthy", Engine: string(engine), Connected: false}
		select {
		case <-m.ready:
			if m.initErr != nil {
				h.Error = m.initErr.Error()
			}
		default:
			h.Error = ErrNotConnected.Error()
		}
		return h
	}

	sqlDB, err := db.DB()
	if err == nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		err = sqlDB.PingContext(pingCtx)
	}
	if err != nil {
		return Health{Status: "unhealthy", Engine: string(engine), Connected: false, Error: err.Error()}
	}
	return Health{Status: "healthy", Engine: string(engine), Connected: true}
}

// Close releases the connection. Safe to call more than once.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.db == nil {
			return
		}
		sqlDB, dbErr := m.db.DB()
		if dbErr != nil {
			err = dbErr
			return
		}
		err = sqlDB.Close()
		m.connected = false
		m.logger.Info("conexión a la base de datos cerrada")
	})
	return err
}
