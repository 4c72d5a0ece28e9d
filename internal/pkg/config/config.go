// internal/pkg/config/config.go
package config

import (
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// FileEnv 指向可选的 yaml 配置文件
const FileEnv = "SHIPPING_CONFIG"

// Config 在启动时解析一次，之后只读。
// 优先级：环境变量 > yaml 文件 > 代码默认值。
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Quote   QuoteConfig   `yaml:"quote"`
	Infra   InfraConfig   `yaml:"infra"`
	Log     LogConfig     `yaml:"log"`
}

type ServiceConfig struct {
	Name        string `yaml:"name" envconfig:"SERVICE_NAME"`
	Port        int    `yaml:"port" envconfig:"SHIPPING_SERVICE_PORT"`
	MetricsPort int    `yaml:"metrics_port" envconfig:"METRICS_PORT"` // 0 表示不开启
}

// QuoteConfig 描述定价依赖
type QuoteConfig struct {
	Addr    string        `yaml:"addr" envconfig:"QUOTE_SERVICE_ADDR"`
	Timeout time.Duration `yaml:"timeout" envconfig:"QUOTE_TIMEOUT"` // 0 表示不设置超时
	// ServiceName 非空且 Addr 为空时，启动时从 nacos 发现一次地址
	ServiceName string `yaml:"service_name" envconfig:"QUOTE_SERVICE_NAME"`
}

type InfraConfig struct {
	Jaeger JaegerConfig `yaml:"jaeger"`
	Nacos  NacosConfig  `yaml:"nacos"`
}

type JaegerConfig struct {
	Endpoint string `yaml:"endpoint" envconfig:"JAEGER_ENDPOINT"`
}

// NacosConfig 为空地址时完全不使用 nacos
type NacosConfig struct {
	Addrs     string `yaml:"addrs" envconfig:"NACOS_SERVER_ADDRS"`
	Namespace string `yaml:"namespace" envconfig:"NACOS_NAMESPACE"`
	Group     string `yaml:"group" envconfig:"NACOS_GROUP"`
	Register  bool   `yaml:"register" envconfig:"NACOS_REGISTER"`
}

type LogConfig struct {
	Level string `yaml:"level" envconfig:"LOG_LEVEL"`
}

// Default 返回代码内置的默认值
func Default() *Config {
	return &Config{
		Service: ServiceConfig{Name: "shipping-service"},
		Infra: InfraConfig{
			Nacos: NacosConfig{Group: "DEFAULT_GROUP"},
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load 依次叠加默认值、$SHIPPING_CONFIG 指向的 yaml 文件与环境变量，并校验结果。
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	// 没有 default 标签，未设置的环境变量不会覆盖已有值
	if err := envconfig.Process("", cfg); err != nil {
		return nil, errors.Wrap(err, "process env overrides")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config file %s", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "parse config file %s", path)
	}
	return nil
}

// Validate 检查启动必需的配置项
func (c *Config) Validate() error {
	if c.Service.Port <= 0 || c.Service.Port > 65535 {
		return errors.Errorf("SHIPPING_SERVICE_PORT is not set or invalid: %d", c.Service.Port)
	}
	if c.Quote.Addr == "" && !c.DiscoverQuote() {
		return errors.New("QUOTE_SERVICE_ADDR is not set")
	}
	if c.Quote.Timeout < 0 {
		return errors.Errorf("quote timeout must not be negative: %s", c.Quote.Timeout)
	}
	return nil
}

// NacosEnabled 报告是否配置了 nacos
func (c *Config) NacosEnabled() bool {
	return c.Infra.Nacos.Addrs != ""
}

// DiscoverQuote 报告定价服务地址是否需要通过 nacos 发现
func (c *Config) DiscoverQuote() bool {
	return c.Quote.Addr == "" && c.Quote.ServiceName != "" && c.NacosEnabled()
}
