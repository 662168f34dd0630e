package logger

import "strings"

// Level — числовой порог детализации логов.
type Level int

const (
	LevelSilent  Level = 0   // ничего, даже fatal
	LevelQuiet   Level = 100 // только fatal, error и warn
	LevelInfo    Level = 200
	LevelStartUp Level = 250
	LevelDebug   Level = 300
	LevelTrace   Level = 400
)

// String — имя уровня в том виде, в каком его принимает LOG_LEVEL.
func (l Level) String() string {
	switch l {
	case LevelSilent:
		return "SILENT"
	case LevelQuiet:
		return "QUIET"
	case LevelInfo:
		return "INFO"
	case LevelStartUp:
		return "STARTUP"
	case LevelDebug:
		return "DEBUG"
	case LevelTrace:
		return "TRACE"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel — разбирает имя уровня без учёта регистра; ok=false для неизвестного имени.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SILENT":
		return LevelSilent, true
	case "QUIET":
		return LevelQuiet, true
	case "INFO":
		return LevelInfo, true
	case "STARTUP":
		return LevelStartUp, true
	case "DEBUG":
		return LevelDebug, true
	case "TRACE":
		return LevelTrace, true
	default:
		return LevelInfo, false
	}
}

// Logger — контракт логгера для оболочки и расширений.
// source — имя приложения или расширения, от имени которого пишется запись.
type Logger interface {
	Fatalf(source, format string, args ...any)   // Fatalf — пишется при любом уровне, кроме SILENT.
	Errorf(source, format string, args ...any)   // Errorf — пишется при любом уровне, кроме SILENT.
	Warnf(source, format string, args ...any)    // Warnf — пишется при любом уровне, кроме SILENT.
	Infof(source, format string, args ...any)    // Infof — уровень >= INFO.
	Startupf(source, format string, args ...any) // Startupf — уровень >= STARTUP.
	Debugf(source, format string, args ...any)   // Debugf — уровень >= DEBUG.
	Tracef(source, format string, args ...any)   // Tracef — уровень >= TRACE.
	Forcef(source, format string, args ...any)   // Forcef — пишется всегда.

	Start()
	Stop()
	Started() bool

	SetLevel(level Level)
	Level() Level
}

// Enabled — правило гейтинга для канала ch при текущем уровне level.
func Enabled(level Level, ch Channel) bool {
	switch ch {
	case ChannelFatal, ChannelError, ChannelWarn:
		return level > LevelSilent
	case ChannelInfo:
		return level >= LevelInfo
	case ChannelStartup:
		return level >= LevelStartUp
	case ChannelDebug:
		return level >= LevelDebug
	case ChannelTrace:
		return level >= LevelTrace
	case ChannelForce:
		return true
	default:
		return false
	}
}

// Channel — один из восьми каналов вывода.
type Channel int

const (
	ChannelFatal Channel = iota
	ChannelError
	ChannelWarn
	ChannelInfo
	ChannelStartup
	ChannelDebug
	ChannelTrace
	ChannelForce
)

// String — метка канала в строке лога.
func (c Channel) String() string {
	switch c {
	case ChannelFatal:
		return "FATAL"
	case ChannelError:
		return "ERROR"
	case ChannelWarn:
		return "WARN"
	case ChannelInfo:
		return "INFO"
	case ChannelStartup:
		return "STARTUP"
	case ChannelDebug:
		return "DEBUG"
	case ChannelTrace:
		return "TRACE"
	case ChannelForce:
		return "FORCED"
	default:
		return "UNKNOWN"
	}
}
