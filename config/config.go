package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Prefix — префикс переменных окружения оболочки.
const Prefix = "CNA"

// HTTP — параметры HTTP-слушателей оболочки.
type HTTP struct {
	GinMode         string        `default:"release" envconfig:"GIN_MODE"`
	ShutdownTimeout time.Duration `default:"5s" envconfig:"SHUTDOWN_TIMEOUT"`
}

// Pool — значения по умолчанию для лениво создаваемых HTTP-пулов.
type Pool struct {
	MaxConnsPerHost       int           `default:"0" envconfig:"MAX_CONNS_PER_HOST"`
	MaxIdleConnsPerHost   int           `default:"10" envconfig:"MAX_IDLE_CONNS_PER_HOST"`
	IdleConnTimeout       time.Duration `default:"90s" envconfig:"IDLE_CONN_TIMEOUT"`
	DialTimeout           time.Duration `default:"30s" envconfig:"DIAL_TIMEOUT"`
	KeepAlive             time.Duration `default:"30s" envconfig:"KEEP_ALIVE"`
	TLSHandshakeTimeout   time.Duration `default:"10s" envconfig:"TLS_HANDSHAKE_TIMEOUT"`
	ResponseHeaderTimeout time.Duration `default:"0s" envconfig:"RESPONSE_HEADER_TIMEOUT"`
}

// Metrics — слушатель /metrics; пустой адрес — выключено.
type Metrics struct {
	Addr string `default:"" envconfig:"ADDR"`
	Path string `default:"/metrics"` // без тега envconfig, иначе откат на $PATH
}

// Tracing — экспорт трейсов OTLP/HTTP.
type Tracing struct {
	Enabled     bool    `default:"false" envconfig:"OTEL_ENABLED"`
	ServiceName string  `default:"cnshell" envconfig:"OTEL_SERVICE_NAME"`
	Endpoint    string  `default:"localhost:4318" envconfig:"OTEL_ENDPOINT"`
	SampleRatio float64 `default:"1" envconfig:"OTEL_SAMPLE_RATIO"`
}

type Config struct {
	HTTP    HTTP
	Pool    Pool `envconfig:"HTTP_POOL"`
	Metrics Metrics
	Tracing Tracing
}

// Load — конфигурация с префиксом CNA.
func Load() (Config, error) {
	return LoadWithPrefix(Prefix)
}

// LoadWithPrefix — конфигурация из окружения с заданным префиксом.
func LoadWithPrefix(prefix string) (Config, error) {
	var c Config

	if err := envconfig.Process(prefix, &c); err != nil {
		return Config{}, err
	}

	return c, nil
}
