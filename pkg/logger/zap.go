package logger

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TimestampISO — формат метки времени ISO-8601 (UTC, миллисекунды).
const TimestampISO = "ISO"

const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// Коды zap-уровней для каналов. Гейтинг делает ZapLogger,
// коды нужны только для маршрутизации stdout/stderr и метки в строке.
const (
	zapStartup = zapcore.Level(-1)
	zapDebug   = zapcore.Level(-2)
	zapTrace   = zapcore.Level(-3)
	zapForce   = zapcore.Level(6)
)

var channelLevels = map[Channel]zapcore.Level{
	ChannelFatal:   zapcore.FatalLevel,
	ChannelError:   zapcore.ErrorLevel,
	ChannelWarn:    zapcore.WarnLevel,
	ChannelInfo:    zapcore.InfoLevel,
	ChannelStartup: zapStartup,
	ChannelDebug:   zapDebug,
	ChannelTrace:   zapTrace,
	ChannelForce:   zapForce,
}

// Options — параметры консольного логгера.
type Options struct {
	Level           Level
	Timestamps      bool
	TimestampFormat string // TimestampISO или layout пакета time
	Stdout          zapcore.WriteSyncer
	Stderr          zapcore.WriteSyncer
}

// ZapLogger — консольная реализация Logger поверх zapcore.
// fatal/error/warn/forced пишутся в stderr, остальное — в stdout.
type ZapLogger struct {
	name    string
	core    zapcore.Core
	level   atomic.Int64
	started atomic.Bool
}

var _ Logger = (*ZapLogger)(nil)

// NewZapLogger — конструктор. Возвращает логгер и функцию сброса буферов.
func NewZapLogger(name string, opts Options) (*ZapLogger, func() error, error) {
	if name == "" {
		return nil, nil, errors.New("logger name is empty")
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = zapcore.Lock(os.Stdout)
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = zapcore.Lock(os.Stderr)
	}

	enc := zapcore.NewConsoleEncoder(encoderConfig(opts.Timestamps, opts.TimestampFormat))
	core := zapcore.NewTee(
		zapcore.NewCore(enc, stderr, zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= zapcore.WarnLevel })),
		zapcore.NewCore(enc.Clone(), stdout, zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l < zapcore.WarnLevel })),
	)

	z := &ZapLogger{
		name: name,
		core: core,
	}
	z.level.Store(int64(opts.Level))

	cleanup := func() error {
		return errors.Join(stdout.Sync(), stderr.Sync())
	}
	return z, cleanup, nil
}

func encoderConfig(timestamps bool, format string) zapcore.EncoderConfig {
	cfg := zapcore.EncoderConfig{
		LevelKey:    "level",
		NameKey:     "logger",
		MessageKey:  "msg",
		LineEnding:  zapcore.DefaultLineEnding,
		EncodeLevel: encodeChannel,
		EncodeName:  zapcore.FullNameEncoder,
	}
	if !timestamps {
		return cfg
	}

	cfg.TimeKey = "ts"
	switch format {
	case "", TimestampISO:
		cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.UTC().Format(isoLayout))
		}
	default:
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout(format)
	}
	return cfg
}

// encodeChannel — метка канала вместо стандартной метки zap.
func encodeChannel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	for ch, zl := range channelLevels {
		if zl == l {
			enc.AppendString(ch.String())
			return
		}
	}
	enc.AppendString(l.CapitalString())
}

func (z *ZapLogger) write(ch Channel, source, format string, args []any) {
	if !z.started.Load() || !Enabled(z.Level(), ch) {
		return
	}

	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}

	name := z.name
	if source != "" {
		name += "." + source
	}

	ent := zapcore.Entry{
		Level:      channelLevels[ch],
		Time:       time.Now(),
		LoggerName: name,
		Message:    msg,
	}
	if ce := z.core.Check(ent, nil); ce != nil {
		ce.Write()
	}
}

func (z *ZapLogger) Fatalf(source, format string, args ...any) {
	z.write(ChannelFatal, source, format, args)
}
func (z *ZapLogger) Errorf(source, format string, args ...any) {
	z.write(ChannelError, source, format, args)
}
func (z *ZapLogger) Warnf(source, format string, args ...any) {
	z.write(ChannelWarn, source, format, args)
}
func (z *ZapLogger) Infof(source, format string, args ...any) {
	z.write(ChannelInfo, source, format, args)
}
func (z *ZapLogger) Startupf(source, format string, args ...any) {
	z.write(ChannelStartup, source, format, args)
}
func (z *ZapLogger) Debugf(source, format string, args ...any) {
	z.write(ChannelDebug, source, format, args)
}
func (z *ZapLogger) Tracef(source, format string, args ...any) {
	z.write(ChannelTrace, source, format, args)
}
func (z *ZapLogger) Forcef(source, format string, args ...any) {
	z.write(ChannelForce, source, format, args)
}

func (z *ZapLogger) Start()        { z.started.Store(true) }
func (z *ZapLogger) Stop()         { z.started.Store(false) }
func (z *ZapLogger) Started() bool { return z.started.Load() }

func (z *ZapLogger) SetLevel(level Level) { z.level.Store(int64(level)) }
func (z *ZapLogger) Level() Level         { return Level(z.level.Load()) }
