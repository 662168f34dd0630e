package shell

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Gunvolt24/cnshell/config"
	"github.com/Gunvolt24/cnshell/pkg/logger"
)

// Имена ключей конфигурации оболочки (префикс AppEnvPrefix).
const (
	CfgLogLevel           = "LOG_LEVEL"
	CfgLogTimestamp       = "LOG_TIMESTAMP"
	CfgLogTimestampFormat = "LOG_TIMESTAMP_FORMAT"

	CfgHTTPKeepAliveTimeout = "HTTP_KEEP_ALIVE_TIMEOUT"
	CfgHTTPHeaderTimeout    = "HTTP_HEADER_TIMEOUT"

	CfgHealthcheckPort       = "HTTP_HEALTHCHECK_PORT"
	CfgHealthcheckInterface  = "HTTP_HEALTHCHECK_INTERFACE"
	CfgHealthcheckPath       = "HTTP_HEALTHCHECK_PATH"
	CfgHealthcheckGoodRes    = "HTTP_HEALTHCHECK_GOOD_RES"
	CfgHealthcheckBadRes     = "HTTP_HEALTHCHECK_BAD_RES"
	CfgHealthcheckExtensions = "HTTP_HEALTHCHECK_EXTENSIONS"
)

const (
	// AppEnvPrefix — префикс переменных окружения приложения.
	AppEnvPrefix = "CNA_"
	// ExtEnvPrefix — префикс переменных окружения расширений.
	ExtEnvPrefix = "CNE_"
	// AppSource — имя источника в логе для самой оболочки и приложения.
	AppSource = "App"
	// DefaultAppVersion — версия, если не задана.
	DefaultAppVersion = "N/A"
)

// Config — параметры оболочки. Нулевые поля заменяются значениями по умолчанию;
// каждое значение из Log и HTTP служит default для одноимённого ключа CLI/окружения.
type Config struct {
	Name       string
	AppVersion string

	Log  LogConfig
	HTTP HTTPConfig

	Args      []string                    // nil — os.Args[1:]
	LookupEnv func(string) (string, bool) // nil — os.LookupEnv
	Runtime   *config.Config              // nil — config.Load()

	// Testing — мягкий выход: ошибки старта и сигналы не вызывают Exit.
	Testing bool
	// Exit — завершение процесса при жёстком выходе; nil — os.Exit.
	Exit func(code int)
}

// LogConfig — параметры логгера.
type LogConfig struct {
	Logger          logger.Logger // внешний логгер; консольный не создаётся
	Level           string        // SILENT|QUIET|INFO|STARTUP|DEBUG|TRACE
	Timestamp       bool
	TimestampFormat string // logger.TimestampISO или layout пакета time
}

// HTTPConfig — параметры healthcheck-слушателя.
type HTTPConfig struct {
	KeepAliveTimeout time.Duration
	HeaderTimeout    time.Duration

	HealthcheckPort       int
	HealthcheckInterface  string // пусто — endpoint выключен
	HealthcheckPath       string
	HealthcheckGoodRes    int
	HealthcheckBadRes     int
	HealthcheckExtensions bool // учитывать HealthCheck расширений
}

// DefaultConfig — значения по умолчанию.
func DefaultConfig() Config {
	return Config{
		AppVersion: DefaultAppVersion,
		Log: LogConfig{
			Level:           logger.LevelInfo.String(),
			TimestampFormat: logger.TimestampISO,
		},
		HTTP: HTTPConfig{
			KeepAliveTimeout:   65 * time.Second,
			HeaderTimeout:      66 * time.Second,
			HealthcheckPort:    8080,
			HealthcheckPath:    "/healthcheck",
			HealthcheckGoodRes: 200,
			HealthcheckBadRes:  503,
		},
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.AppVersion == "" {
		c.AppVersion = d.AppVersion
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.TimestampFormat == "" {
		c.Log.TimestampFormat = d.Log.TimestampFormat
	}
	if c.HTTP.KeepAliveTimeout <= 0 {
		c.HTTP.KeepAliveTimeout = d.HTTP.KeepAliveTimeout
	}
	if c.HTTP.HeaderTimeout <= 0 {
		c.HTTP.HeaderTimeout = d.HTTP.HeaderTimeout
	}
	if c.HTTP.HealthcheckPort == 0 {
		c.HTTP.HealthcheckPort = d.HTTP.HealthcheckPort
	}
	if c.HTTP.HealthcheckPath == "" {
		c.HTTP.HealthcheckPath = d.HTTP.HealthcheckPath
	}
	if c.HTTP.HealthcheckGoodRes == 0 {
		c.HTTP.HealthcheckGoodRes = d.HTTP.HealthcheckGoodRes
	}
	if c.HTTP.HealthcheckBadRes == 0 {
		c.HTTP.HealthcheckBadRes = d.HTTP.HealthcheckBadRes
	}
	if c.Args == nil {
		c.Args = os.Args[1:]
	}
	if c.LookupEnv == nil {
		c.LookupEnv = os.LookupEnv
	}
	if c.Exit == nil {
		c.Exit = os.Exit
	}
	return c
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("shell name is empty")
	}
	return c.HTTP.validate()
}

func (h HTTPConfig) validate() error {
	if h.HealthcheckPort < 0 || h.HealthcheckPort > 65535 {
		return fmt.Errorf("healthcheck port %d out of range", h.HealthcheckPort)
	}
	if !strings.HasPrefix(h.HealthcheckPath, "/") {
		return fmt.Errorf("healthcheck path %q must start with /", h.HealthcheckPath)
	}
	for _, code := range []int{h.HealthcheckGoodRes, h.HealthcheckBadRes} {
		if code < 100 || code > 599 {
			return fmt.Errorf("healthcheck status code %d out of range", code)
		}
	}
	if h.KeepAliveTimeout <= 0 || h.HeaderTimeout <= 0 {
		return errors.New("http timeouts must be positive")
	}
	return nil
}
