package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	appcontainer "xgains/internal/application/container"
	"xgains/internal/application/port"
	"xgains/internal/infrastructure/config"
	"xgains/internal/infrastructure/exchange/binance"
	"xgains/internal/infrastructure/importer"
	"xgains/internal/infrastructure/pricefeed"
	"xgains/internal/infrastructure/storage"
	"xgains/internal/infrastructure/storage/composite"
	"xgains/internal/infrastructure/storage/memory"
	pgrepo "xgains/internal/infrastructure/storage/postgres"
	redisrepo "xgains/internal/infrastructure/storage/redis"
	sqliterepo "xgains/internal/infrastructure/storage/sqlite"
)

// Container 包含所有应用依赖
type Container struct {
	cfg         *config.Config
	endpoints   map[string]port.LedgerRepository
	redisClient *redis.Client
	candleCache *composite.CandleCache
	binance     *binance.APIClient
	app         *appcontainer.Container
	closeOnce   sync.Once
	closerChain []func() error
}

// New 创建新的容器实例
func New(cfg *config.Config) (*Container, error) {
	c := &Container{
		cfg:         cfg,
		endpoints:   make(map[string]port.LedgerRepository, len(cfg.Endpoints)),
		closerChain: make([]func() error, 0),
	}

	if err := c.initStorage(); err != nil {
		// 清理已初始化的资源
		_ = c.Close()
		return nil, err
	}
	if c.endpoints[cfg.App.Ledger] == nil {
		_ = c.Close()
		return nil, fmt.Errorf("ledger %q: %w", cfg.App.Ledger, storage.ErrNoStorage)
	}
	c.initBinance()

	c.app = appcontainer.New(appcontainer.Deps{
		Ledger:    c.endpoints[cfg.App.Ledger],
		Endpoints: c.endpoints,
		Cache:     c.candleCache,
		Fetcher:   c.binance,
		Market:    c.binance,
		Orders:    c.binance,
		Parsers:   importer.Parsers(),
		Fiat:      cfg.App.FiatCurrency,
		MaxRows:   cfg.Server.MaxRows,
	})
	return c, nil
}

// initStorage 账本 endpoint、Redis、K 线缓存链
func (c *Container) initStorage() error {
	for _, ep := range c.cfg.Endpoints {
		if err := c.initEndpoint(ep); err != nil {
			return fmt.Errorf("endpoint %s init failed: %w", ep.Name, err)
		}
	}

	if c.cfg.Redis.Enabled {
		if err := c.initRedis(); err != nil {
			return fmt.Errorf("redis init failed: %w", err)
		}
	}

	c.initCandleCache()
	return nil
}

func (c *Container) initEndpoint(ep config.Endpoint) error {
	var repo port.LedgerRepository
	switch ep.Driver {
	case config.DriverSQLite:
		r, err := sqliterepo.New(ep.Path)
		if err != nil {
			return err
		}
		repo = r
	case config.DriverPostgres:
		r, err := pgrepo.New(ep.DSN)
		if err != nil {
			return err
		}
		repo = r
	default:
		return fmt.Errorf("unknown driver %q", ep.Driver)
	}

	c.endpoints[ep.Name] = repo

	// 注册关闭回调
	name := ep.Name
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Str("endpoint", name).Msg("closing ledger connection")
		return repo.Close()
	})

	log.Info().
		Str("endpoint", ep.Name).
		Str("driver", ep.Driver).
		Msg("ledger initialized")
	return nil
}

// initRedis 初始化 Redis 连接
func (c *Container) initRedis() error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     c.cfg.Redis.Addr,
		Password: c.cfg.Redis.Password,
		DB:       c.cfg.Redis.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	c.redisClient = rdb

	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().
		Str("addr", c.cfg.Redis.Addr).
		Int("db", c.cfg.Redis.DB).
		Msg("redis initialized")
	return nil
}

// initCandleCache 内存 -> Redis -> 默认账本的 candle 表
func (c *Container) initCandleCache() {
	layers := []port.CandleCache{
		memory.New(time.Duration(c.cfg.Cache.MemoryTTLMinutes) * time.Minute),
	}
	if c.redisClient != nil {
		ttl := time.Duration(c.cfg.Redis.TTLSeconds) * time.Second
		layers = append(layers, redisrepo.New(c.redisClient, c.cfg.Redis.Prefix, ttl))
	}
	if store, ok := c.endpoints[c.cfg.App.Ledger].(port.CandleCache); ok {
		layers = append(layers, store)
	}
	c.candleCache = composite.New(layers...)
}

func (c *Container) initBinance() {
	c.binance = binance.NewAPIClient(binance.Options{
		BaseURL:           c.cfg.Binance.RestURL,
		APIKey:            c.cfg.Binance.APIKey,
		APISecret:         c.cfg.Binance.APISecret,
		RequestsPerSecond: c.cfg.Binance.RequestsPerSecond,
		MaxRetries:        c.cfg.Binance.MaxRetries,
		Timeout:           time.Duration(c.cfg.Binance.TimeoutSeconds) * time.Second,
	})
}

// Config 获取配置
func (c *Container) Config() *config.Config {
	return c.cfg
}

// App 应用服务
func (c *Container) App() *appcontainer.Container {
	return c.app
}

// CandleCache 组合缓存
func (c *Container) CandleCache() port.CandleCache {
	return c.candleCache
}

// Endpoint 按名称取账本
func (c *Container) Endpoint(name string) (port.LedgerRepository, bool) {
	repo, ok := c.endpoints[name]
	return repo, ok
}

// KlineFeeds 已注册的全部实时 K 线源
func (c *Container) KlineFeeds() []port.KlineFeed {
	names := pricefeed.Names()
	feeds := make([]port.KlineFeed, 0, len(names))
	for _, name := range names {
		factory, _ := pricefeed.Get(name)
		feeds = append(feeds, factory(c.cfg.Binance.WsURL))
	}
	return feeds
}

// Close 关闭所有资源（按后进先出顺序）
func (c *Container) Close() error {
	var err error
	c.closeOnce.Do(func() {
		for i := len(c.closerChain) - 1; i >= 0; i-- {
			if e := c.closerChain[i](); e != nil {
				log.Error().Err(e).Msg("error closing resource")
				if err == nil {
					err = e
				}
			}
		}
		log.Info().Msg("container closed")
	})
	return err
}
