// Package redis backs the source cache with Redis.
package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Modes accepted by Config.Mode.
const (
	ModeSingle   = "single"
	ModeSentinel = "sentinel"
	ModeCluster  = "cluster"
)

// Config describes how to reach Redis.
type Config struct {
	Mode        string
	Addrs       []string
	MasterName  string
	DB          int
	Username    string
	Password    string
	DialTimeout time.Duration
	PoolSize    int
	TLSEnabled  bool
}

var (
	errAddressRequired    = errors.New("redis: address is required")
	errUnsupportedMode    = errors.New("redis: unsupported mode")
	errMasterNameRequired = errors.New("redis: master name is required for sentinel mode")
	errSingleAddrCount    = errors.New("redis: single mode requires exactly one address")
	errClusterAddrCount   = errors.New("redis: cluster mode requires at least two addresses")
	errClusterDB          = errors.New("redis: db must be 0 in cluster mode")
)

// NewUniversal builds the underlying client; tests replace it.
var NewUniversal = func(opt *redis.UniversalOptions) redis.UniversalClient {
	return redis.NewUniversalClient(opt)
}

// NewClient validates cfg, connects and pings.
func NewClient(ctx context.Context, cfg Config) (redis.UniversalClient, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = ModeSingle
	}
	addrs := make([]string, 0, len(cfg.Addrs))
	for _, a := range cfg.Addrs {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	if err := validate(cfg, mode, addrs); err != nil {
		return nil, err
	}

	opt := &redis.UniversalOptions{
		Addrs:       addrs,
		MasterName:  strings.TrimSpace(cfg.MasterName),
		DB:          cfg.DB,
		Username:    cfg.Username,
		Password:    cfg.Password,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	}
	if cfg.TLSEnabled {
		opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	rdb := NewUniversal(opt)

	pingTimeout := cfg.DialTimeout
	if pingTimeout <= 0 {
		pingTimeout = 3 * time.Second
	}
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func validate(cfg Config, mode string, addrs []string) error {
	if len(addrs) == 0 {
		return errAddressRequired
	}
	switch mode {
	case ModeSingle:
		if len(addrs) != 1 {
			return errSingleAddrCount
		}
	case ModeCluster:
		if len(addrs) < 2 {
			return errClusterAddrCount
		}
		if cfg.DB != 0 {
			return errClusterDB
		}
	case ModeSentinel:
		if strings.TrimSpace(cfg.MasterName) == "" {
			return errMasterNameRequired
		}
	default:
		return errUnsupportedMode
	}
	return nil
}
