package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/shandysiswandi/wapilot/internal/pkg/clock"
	"github.com/shandysiswandi/wapilot/internal/pkg/config"
	"github.com/shandysiswandi/wapilot/internal/pkg/goroutine"
	"github.com/shandysiswandi/wapilot/internal/pkg/idempotency"
	"github.com/shandysiswandi/wapilot/internal/pkg/instrument"
	"github.com/shandysiswandi/wapilot/internal/pkg/jwt"
	"github.com/shandysiswandi/wapilot/internal/pkg/messaging"
	"github.com/shandysiswandi/wapilot/internal/pkg/router"
	"github.com/shandysiswandi/wapilot/internal/pkg/session"
	"github.com/shandysiswandi/wapilot/internal/pkg/storage"
	"github.com/shandysiswandi/wapilot/internal/pkg/uid"
	"github.com/shandysiswandi/wapilot/internal/pkg/validator"
)

const redisPingTimeout = 5 * time.Second

// configPath honours CONFIG_PATH, then LOCAL=true for a checkout, then the
// container mount.
func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	if os.Getenv("LOCAL") == "true" {
		return "./config/config.yaml"
	}
	return "/config/config.yaml"
}

func (a *App) initConfig() error {
	cfg, err := config.NewViper(configPath())
	if err != nil {
		return err
	}
	a.config = cfg
	a.onClose("config", func(context.Context) error { return cfg.Close() })

	if tz := cfg.GetString("app.tz"); tz != "" {
		//nolint:errcheck,gosec // TZ is advisory
		os.Setenv("TZ", tz)
	}
	return nil
}

func (a *App) initInstrument() error {
	c := a.config
	ins, err := instrument.New(a.ctx, &instrument.Config{
		Enabled:          c.GetBool("instrument.enabled"),
		ServiceName:      c.GetString("instrument.service_name"),
		ServiceVersion:   c.GetString("instrument.service_version"),
		Environment:      c.GetString("instrument.env"),
		OTLPEndpoint:     c.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       c.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: c.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  c.GetSecond("instrument.metric_interval_seconds"),
		MaskFields:       c.GetArray("instrument.log_mask_fields"),
		LogLevel:         c.GetString("instrument.log_level"),
	})
	if err != nil {
		return err
	}
	a.ins = ins
	a.onClose("instrument", ins.Shutdown)
	return nil
}

func (a *App) initLibraries() error {
	a.clock = clock.New()
	a.uuid = uid.NewUUID()
	a.goroutine = goroutine.NewManager(a.config.GetInt("app.server.max_goroutine"))

	v, err := validator.NewV10Validator()
	if err != nil {
		return fmt.Errorf("validator: %w", err)
	}
	a.validator = v

	tokens, err := jwt.NewHS512(jwt.Config{
		Secret:    []byte(a.config.GetString("jwt.secret")),
		Issuer:    a.config.GetString("jwt.issuer"),
		Audiences: a.config.GetArray("jwt.audiences"),
		TTL:       a.config.GetMinute("session.ttl_minutes"),
		Clock:     a.clock,
		UUID:      a.uuid,
	})
	if err != nil {
		return fmt.Errorf("jwt: %w", err)
	}
	a.jwt = tokens

	return nil
}

func (a *App) initRedis() error {
	opt, err := redis.ParseURL(a.config.GetString("redis.url"))
	if err != nil {
		return err
	}

	rdb := redis.NewClient(opt)
	a.onClose("redis", func(context.Context) error { return rdb.Close() })

	ctx, cancel := context.WithTimeout(a.ctx, redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return err
	}

	a.redis = rdb
	a.idemp = idempotency.New(rdb, a.config.GetString("redis.prefix.idempotency"))
	return nil
}

func (a *App) initSession() error {
	switch driver := strings.TrimSpace(a.config.GetString("session.driver")); driver {
	case "memory":
		a.session = session.NewMemory()
	case "redis", "":
		a.session = session.NewRedis(a.redis,
			a.config.GetString("redis.prefix.session"),
			a.config.GetMinute("session.ttl_minutes"),
		)
	default:
		return fmt.Errorf("unknown session driver %q", driver)
	}
	return nil
}

func (a *App) initStorage() error {
	key := func(k string) string { return strings.TrimSpace(a.config.GetString("storage.minio." + k)) }

	stg, err := storage.Open(a.ctx, a.config.GetString("storage.driver"), storage.MinIOOptions{
		Endpoint:       key("endpoint"),
		AccessKey:      key("access_key"),
		SecretKey:      key("secret_key"),
		SessionToken:   key("session_token"),
		Region:         key("region"),
		UseSSL:         a.config.GetBool("storage.minio.use_ssl"),
		Bucket:         key("bucket"),
		CreateBucket:   a.config.GetBool("storage.minio.create_bucket"),
		HealthInterval: a.config.GetSecond("storage.minio.health_interval_seconds"),
	})
	if errors.Is(err, storage.ErrDisabled) {
		slog.Info("object storage disabled, QR code sharing is off")
		return nil
	}
	if err != nil {
		return err
	}

	a.storage = stg
	a.onClose("storage", func(context.Context) error { return stg.Close() })
	return nil
}

func (a *App) initMessaging() error {
	c := a.config
	driver := c.GetString("messaging.driver")

	client, err := messaging.Open(driver, messaging.Options{
		NATS: messaging.NATSConfig{
			URL: c.GetString("messaging.nats.url"),
			Options: []nats.Option{
				nats.Name(c.GetString("messaging.nats.name")),
				nats.MaxReconnects(c.GetInt("messaging.nats.max_reconnects")),
				nats.Timeout(c.GetSecond("messaging.nats.timeout_seconds")),
				nats.ReconnectWait(c.GetSecond("messaging.nats.reconnect_wait_seconds")),
				nats.PingInterval(c.GetSecond("messaging.nats.ping_interval_seconds")),
				nats.MaxPingsOutstanding(c.GetInt("messaging.nats.max_pings_outstanding")),
				nats.RetryOnFailedConnect(c.GetBool("messaging.nats.retry_on_failed_connect")),
			},
		},
		AMQP: messaging.AMQPConfig{
			URL:      c.GetString("messaging.amqp.url"),
			Exchange: c.GetString("messaging.amqp.exchange"),
			AppID:    c.GetString("instrument.service_name"),
		},
		Memory: messaging.MemoryConfig{
			Buffer: c.GetInt("messaging.memory.buffer"),
		},
	})
	if err != nil {
		return fmt.Errorf("driver %s: %w", driver, err)
	}

	a.messaging = client
	a.onClose("messaging", func(context.Context) error { return client.Close() })
	return nil
}

func (a *App) initHTTPServer() error {
	a.router = router.NewRouter(router.Config{
		Config:     a.config,
		UUID:       a.uuid,
		JWT:        a.jwt,
		Instrument: a.ins,
	})

	a.router.AddHealthCheck("redis", func(ctx context.Context) error {
		return a.redis.Ping(ctx).Err()
	})
	if a.storage != nil {
		a.router.AddHealthCheck("storage", a.storage.Ping)
	}

	handler := cors.New(cors.Options{
		AllowedOrigins: a.config.GetArray("app.server.cors"),
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(a.router)

	srv := func(k string) time.Duration { return a.config.GetSecond("app.server." + k) }

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("app.server.http.address"),
		Handler:           handler,
		ReadTimeout:       srv("http.read_timeout_seconds"),
		ReadHeaderTimeout: srv("http.read_header_timeout_seconds"),
		WriteTimeout:      srv("http.write_timeout_seconds"),
		IdleTimeout:       srv("http.idle_timeout_seconds"),
	}

	// Streams have no write timeout and end with the app context.
	a.sseServer = &http.Server{
		Addr:              a.config.GetString("app.server.sse.address"),
		Handler:           handler,
		ReadHeaderTimeout: srv("sse.read_header_timeout_seconds"),
		BaseContext:       func(net.Listener) context.Context { return a.ctx },
	}

	return nil
}
