package pg

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

const (
	defaultMaxOpenConnections     = 25
	defaultMaxIdleConnections     = 5
	connMaxLifetime               = 5 * time.Minute
	connMaxIdleTime               = 1 * time.Minute
	defaultStatementTimeoutMillis = 60000
)

type Config struct {
	// Host пустой: профили, память и расходы хранятся в памяти процесса
	Host                   string `envconfig:"HOST"`
	Port                   string `envconfig:"PORT" default:"5432"`
	Username               string `envconfig:"USERNAME"`
	Password               string `envconfig:"PASSWORD"`
	Database               string `envconfig:"DATABASE" default:"astro_agent"`
	SSLMode                string `envconfig:"SSL_MODE" default:"disable"`
	StatementTimeoutMillis int    `envconfig:"STATEMENT_TIMEOUT" default:"60000"`
	MaxOpenConns           int    `envconfig:"MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns           int    `envconfig:"MAX_IDLE_CONNS" default:"5"`
	SlowQueryMillis        int    `envconfig:"SLOW_QUERY" default:"500"`
}

func (c *Config) Enabled() bool {
	return c != nil && c.Host != ""
}

// SlowQuery порог, после которого запрос логируется как медленный
func (c *Config) SlowQuery() time.Duration {
	return time.Duration(c.SlowQueryMillis) * time.Millisecond
}

func (c *Config) toPgConnection() string {
	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
		c.Host,
		c.Port,
		c.Username,
		c.Database,
		c.Password,
		c.SSLMode,
	)
}

// NewConnection создает новое подключение к базе данных с настройками пула и statement_timeout
func (c *Config) NewConnection() (*sqlx.DB, error) {
	connectionConfig, err := pgx.ParseConfig(c.toPgConnection())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	// statement_timeout через параметры подключения, чтобы он действовал на каждое соединение пула
	timeout := c.StatementTimeoutMillis
	if timeout <= 0 {
		timeout = defaultStatementTimeoutMillis
	}
	connectionConfig.RuntimeParams["statement_timeout"] = strconv.Itoa(timeout)

	connectionString := stdlib.RegisterConnConfig(connectionConfig)
	db, err := sqlx.Connect("pgx", connectionString)
	if err != nil {
		return nil, fmt.Errorf("connect db error: %w", err)
	}

	maxOpen := c.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConnections
	}
	maxIdle := c.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = defaultMaxIdleConnections
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetMaxIdleConns(min(maxIdle, maxOpen))
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db error: %w", err)
	}

	return db, nil
}
