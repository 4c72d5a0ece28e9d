// cmd/quote-service/main.go
package main

import (
	"context"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	zlog "github.com/rs/zerolog/log"

	"shippingservice/internal/pkg/bootstrap"
	"shippingservice/internal/pkg/config"
	"shippingservice/internal/pkg/logger"
	"shippingservice/internal/pkg/nacos"
	"shippingservice/internal/tracing"
)

const serviceName = "quote-service"

// quoteConfig 只从环境变量读取
type quoteConfig struct {
	Port           int    `envconfig:"QUOTE_SERVICE_PORT" default:"8090"`
	JaegerEndpoint string `envconfig:"JAEGER_ENDPOINT"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	// Nacos.Addrs 非空且 Register 为 true 时注册为 quote-service，供 shipping-service 发现
	Nacos config.NacosConfig
}

func loadConfig() (quoteConfig, error) {
	var cfg quoteConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, errors.Wrap(err, "process env")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return cfg, errors.Errorf("QUOTE_SERVICE_PORT is invalid: %d", cfg.Port)
	}
	return cfg, nil
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(serviceName, cfg.LogLevel)

	tp, propagator, err := tracing.InitTracerProvider(serviceName, cfg.JaegerEndpoint)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to initialize tracer provider")
	}

	var registry bootstrap.Registry
	if cfg.Nacos.Addrs != "" && cfg.Nacos.Register {
		client, err := nacos.NewClient(cfg.Nacos)
		if err != nil {
			zlog.Fatal().Err(err).Msg("failed to initialize nacos client")
		}
		registry = client
	}

	h := &quoteHandler{tracer: tp.Tracer(serviceName), propagator: propagator}
	bootstrap.StartHTTPService(bootstrap.HTTPAppInfo{
		ServiceName: serviceName,
		Port:        cfg.Port,
		Handler:     h.routes(),
		Registry:    registry,
		Cleanup: []func(ctx context.Context) error{
			tp.Shutdown,
		},
	})
}
