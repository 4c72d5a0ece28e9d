// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const shutdownTimeout = 10 * time.Second

// Registry 是服务注册中心的最小能力，*nacos.Client 实现了它
type Registry interface {
	RegisterServiceInstance(serviceName, ip string, port int) error
	DeregisterServiceInstance(serviceName, ip string, port int) error
	Close()
}

// outboundIP 返回本机对外通信使用的 IP，用于服务注册
var outboundIP = func() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}

// AppInfo 包含了启动一个 gRPC 微服务所需的所有特定信息。
type AppInfo struct {
	ServiceName string
	Port        int
	MetricsPort int // 0 表示不开启 /metrics 与 /healthz

	// Listener 非空时使用它而不是监听 Port（测试中传入 bufconn）
	Listener net.Listener

	// RegisterServices 允许每个服务注册自己的 gRPC 服务，返回需要上报健康状态的服务名
	RegisterServices func(s *grpc.Server) []string
	Interceptors     []grpc.UnaryServerInterceptor

	Gatherer prometheus.Gatherer
	Registry Registry // 为空时不注册

	// Cleanup 在服务停止后按顺序执行，例如关闭 TracerProvider
	Cleanup []func(ctx context.Context) error
}

// HTTPAppInfo 描述一个只提供 HTTP 接口的服务
type HTTPAppInfo struct {
	ServiceName string
	Port        int
	Listener    net.Listener
	Handler     http.Handler
	Registry    Registry
	Cleanup     []func(ctx context.Context) error
}

// StartService 封装了通用的启动和优雅关停逻辑，收到 SIGINT/SIGTERM 后返回。
func StartService(info AppInfo) {
	runUntilSignal(info.ServiceName, func(ctx context.Context) error { return Run(ctx, info) })
}

// StartHTTPService 是 StartService 的 HTTP 版本
func StartHTTPService(info HTTPAppInfo) {
	runUntilSignal(info.ServiceName, func(ctx context.Context) error { return RunHTTP(ctx, info) })
}

func runUntilSignal(serviceName string, run func(ctx context.Context) error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		zlog.Fatal().Err(err).Str("service", serviceName).Msg("service exited with error")
	}
	zlog.Info().Str("service", serviceName).Msg("service gracefully shut down")
}

// Run 启动 gRPC 服务与指标端口，阻塞直到 ctx 结束或任一服务失败。
func Run(ctx context.Context, info AppInfo) error {
	lis, err := listen(info.Listener, info.Port)
	if err != nil {
		return err
	}

	server := grpc.NewServer(grpc.ChainUnaryInterceptor(info.Interceptors...))
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(server, healthSrv)

	var names []string
	if info.RegisterServices != nil {
		names = info.RegisterServices(server)
	}
	// 注册完成之后才对外报告 SERVING
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	for _, name := range names {
		healthSrv.SetServingStatus(name, healthpb.HealthCheckResponse_SERVING)
	}

	var metricsSrv *http.Server
	if info.MetricsPort > 0 {
		metricsSrv = &http.Server{
			Addr:              ":" + strconv.Itoa(info.MetricsPort),
			Handler:           metricsMux(info.Gatherer),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	ip, err := register(info.Registry, info.ServiceName, info.Port)
	if err != nil {
		_ = lis.Close()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zlog.Info().Str("service", info.ServiceName).Str("addr", lis.Addr().String()).Msg("gRPC server listening")
		if err := server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return errors.Wrap(err, "serve grpc")
		}
		return nil
	})

	if metricsSrv != nil {
		g.Go(func() error {
			zlog.Info().Str("addr", metricsSrv.Addr).Msg("metrics server listening")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "serve metrics")
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		zlog.Info().Str("service", info.ServiceName).Msg("shutting down service")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// 按顺序清理：先摘流量，再停服务，最后刷出 trace
		healthSrv.Shutdown()
		deregister(info.Registry, info.ServiceName, ip, info.Port)

		gracefulStop(shutdownCtx, server)

		if metricsSrv != nil {
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				zlog.Error().Err(err).Msg("error shutting down metrics server")
			}
		}

		runCleanup(shutdownCtx, info.Cleanup)
		return nil
	})

	return g.Wait()
}

// RunHTTP 启动 HTTP 服务，阻塞直到 ctx 结束或服务失败。
func RunHTTP(ctx context.Context, info HTTPAppInfo) error {
	lis, err := listen(info.Listener, info.Port)
	if err != nil {
		return err
	}

	ip, err := register(info.Registry, info.ServiceName, info.Port)
	if err != nil {
		_ = lis.Close()
		return err
	}

	server := &http.Server{Handler: info.Handler, ReadHeaderTimeout: 5 * time.Second}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zlog.Info().Str("service", info.ServiceName).Str("addr", lis.Addr().String()).Msg("HTTP server listening")
		if err := server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serve http")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zlog.Info().Str("service", info.ServiceName).Msg("shutting down service")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		deregister(info.Registry, info.ServiceName, ip, info.Port)
		if err := server.Shutdown(shutdownCtx); err != nil {
			zlog.Error().Err(err).Msg("error shutting down http server")
		}
		runCleanup(shutdownCtx, info.Cleanup)
		return nil
	})

	return g.Wait()
}

func listen(lis net.Listener, port int) (net.Listener, error) {
	if lis != nil {
		return lis, nil
	}
	lis, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return nil, errors.Wrapf(err, "listen on :%d", port)
	}
	return lis, nil
}

// register 在配置了注册中心时注册本实例，返回注册使用的 IP
func register(r Registry, serviceName string, port int) (string, error) {
	if r == nil {
		return "", nil
	}
	ip, err := outboundIP()
	if err != nil {
		return "", errors.Wrap(err, "get outbound ip")
	}
	if err := r.RegisterServiceInstance(serviceName, ip, port); err != nil {
		return "", err
	}
	return ip, nil
}

func deregister(r Registry, serviceName, ip string, port int) {
	if r == nil {
		return
	}
	if err := r.DeregisterServiceInstance(serviceName, ip, port); err != nil {
		zlog.Error().Err(err).Msg("error deregistering from registry")
	}
	r.Close()
}

func runCleanup(ctx context.Context, fns []func(ctx context.Context) error) {
	for _, fn := range fns {
		if err := fn(ctx); err != nil {
			zlog.Error().Err(err).Msg("error during cleanup")
		}
	}
}

// gracefulStop 等待进行中的调用结束，超时后强制停止
func gracefulStop(ctx context.Context, server *grpc.Server) {
	done := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		zlog.Warn().Msg("graceful stop timed out, forcing")
		server.Stop()
	}
}

func metricsMux(gatherer prometheus.Gatherer) *http.ServeMux {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}
