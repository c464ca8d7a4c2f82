// Package config holds environment-driven configuration for the
// filechain executables and wires repositories and services from it.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/filechain/filechain/pkg/filechain"
	"github.com/filechain/filechain/pkg/filechain/ledger"
	"github.com/filechain/filechain/pkg/filechain/pinning"
	memoryrepo "github.com/filechain/filechain/pkg/filechain/repo/memory"
	postgresrepo "github.com/filechain/filechain/pkg/filechain/repo/postgres"
)

// Config aggregates all configuration sections.
type Config struct {
	Server  ServerConfig
	Pinning PinningConfig
	Ledger  LedgerConfig
}

// ServerConfig configures the metadata API server.
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	// DatabaseURL selects the record store: empty or "memory" for the
	// in-memory repository, postgres:// or postgresql:// for Postgres.
	DatabaseURL string `env:"DATABASE_URL" env-default:""`
}

// PinningConfig configures the content upload client.
type PinningConfig struct {
	Endpoint   string `env:"PINATA_ENDPOINT" env-default:"https://api.pinata.cloud"`
	APIKey     string `env:"PINATA_API_KEY"`
	APISecret  string `env:"PINATA_SECRET_API_KEY"`
	GatewayURL string `env:"IPFS_GATEWAY_URL" env-default:"https://gateway.pinata.cloud/ipfs"`
}

// LedgerConfig configures the ledger anchor client.
type LedgerConfig struct {
	AlgodURL       string `env:"ALGOD_URL" env-default:"https://testnet-api.algonode.cloud"`
	AlgodToken     string `env:"ALGOD_TOKEN"`
	AppID          uint64 `env:"APP_ID"`
	SignerMnemonic string `env:"SIGNER_MNEMONIC"`
	WaitRounds     uint64 `env:"WAIT_ROUNDS" env-default:"4"`
}

// Load reads configuration from the process environment.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := cfg.Server.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if !isMemoryURL(c.DatabaseURL) && !isPostgresURL(c.DatabaseURL) {
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", c.DatabaseURL)
	}
	return nil
}

// BuildRepository creates the record store selected by DatabaseURL. The
// returned cleanup func releases the underlying pool, if any.
func (c *ServerConfig) BuildRepository(ctx context.Context) (filechain.Repository, func(), error) {
	if isMemoryURL(c.DatabaseURL) {
		return memoryrepo.New(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, c.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return postgresrepo.NewWithPool(pool), pool.Close, nil
}

// BuildService creates the metadata service over the configured record
// store.
func (c *ServerConfig) BuildService(ctx context.Context) (filechain.Service, func(), error) {
	repo, cleanup, err := c.BuildRepository(ctx)
	if err != nil {
		return nil, nil, err
	}

	svc, err := filechain.New(filechain.WithRepository(repo))
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return svc, cleanup, nil
}

// BuildClient creates the pinning client from config.
func (c *PinningConfig) BuildClient() (*pinning.Client, error) {
	return pinning.NewClient(pinning.Config{
		Endpoint:   c.Endpoint,
		APIKey:     c.APIKey,
		APISecret:  c.APISecret,
		GatewayURL: c.GatewayURL,
	})
}

// BuildClient creates the ledger client from config.
func (c *LedgerConfig) BuildClient() (*ledger.Client, error) {
	return ledger.NewClient(ledger.Config{
		AlgodURL:       c.AlgodURL,
		AlgodToken:     c.AlgodToken,
		AppID:          c.AppID,
		SignerMnemonic: c.SignerMnemonic,
		WaitRounds:     c.WaitRounds,
	})
}

func isMemoryURL(url string) bool {
	return url == "" || url == "memory"
}

func isPostgresURL(url string) bool {
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}
