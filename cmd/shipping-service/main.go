package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/grpc"

	"shippingservice/api/oteldemo"
	"shippingservice/internal/pkg/bootstrap"
	"shippingservice/internal/pkg/config"
	"shippingservice/internal/pkg/httpclient"
	"shippingservice/internal/pkg/logger"
	"shippingservice/internal/pkg/metrics"
	"shippingservice/internal/pkg/nacos"
	"shippingservice/internal/service/shipping/application"
	"shippingservice/internal/service/shipping/infrastructure/adapter"
	"shippingservice/internal/service/shipping/interfaces"
	"shippingservice/internal/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.Service.Name, cfg.Log.Level)

	// 1. Tracer
	tp, propagator, err := tracing.InitTracerProvider(cfg.Service.Name, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to initialize tracer provider")
	}

	// 2. 服务契约
	schema, err := oteldemo.Load(context.Background())
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load service schema")
	}

	// 3. 定价服务地址只解析一次
	var nacosClient *nacos.Client
	if cfg.NacosEnabled() {
		if nacosClient, err = nacos.NewClient(cfg.Infra.Nacos); err != nil {
			zlog.Fatal().Err(err).Msg("failed to initialize nacos client")
		}
	}
	quoteAddr := cfg.Quote.Addr
	if cfg.DiscoverQuote() {
		if quoteAddr, err = nacosClient.DiscoverServiceURL(cfg.Quote.ServiceName); err != nil {
			zlog.Fatal().Err(err).Msg("failed to discover quote service")
		}
	}

	// 4. 依赖注入
	bridge := tracing.NewBridge(tp, propagator, cfg.Service.Name)
	quotes := adapter.NewQuoteHTTPAdapter(httpclient.NewClient(bridge.Tracer(), bridge), quoteAddr, cfg.Quote.Timeout)
	m := metrics.New(prometheus.DefaultRegisterer)
	svc := application.NewShippingApplicationService(bridge, quotes, nil, m)
	handler := interfaces.NewShippingHandler(schema, svc)

	zlog.Info().Str("quote_endpoint", quotes.Endpoint()).Int("port", cfg.Service.Port).Msg("shipping service configured")

	// 接口变量只在真正注册时赋值，避免装入 nil 指针
	var registry bootstrap.Registry
	if cfg.Infra.Nacos.Register && nacosClient != nil {
		registry = nacosClient
	} else if nacosClient != nil {
		// 只用于发现，不再需要
		nacosClient.Close()
	}

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName:  cfg.Service.Name,
		Port:         cfg.Service.Port,
		MetricsPort:  cfg.Service.MetricsPort,
		Interceptors: []grpc.UnaryServerInterceptor{interfaces.RecoveryInterceptor()},
		RegisterServices: func(s *grpc.Server) []string {
			handler.Register(s)
			return []string{oteldemo.ServiceName}
		},
		Gatherer: prometheus.DefaultGatherer,
		Registry: registry,
		Cleanup: []func(ctx context.Context) error{
			tp.Shutdown,
		},
	})
}
