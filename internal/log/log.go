package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/redirtxt/redirtxt/internal/config"
)

// SetLogConf installs the default slog logger. Lines go to stdout, to a
// rotating log file and, when lb is not nil, to the live log broadcaster.
func SetLogConf(level string, file string, lb *Broadcaster) {
	if file == "" {
		file = GetLogFilePath()
	}
	writers := []io.Writer{
		os.Stdout,
		&lumberjack.Logger{
			Filename:   file,
			MaxSize:    5, // megabytes
			MaxBackups: 5,
			MaxAge:     7, // days
			LocalTime:  true,
			Compress:   true,
		},
	}
	if lb != nil {
		writers = append(writers, lb)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(io.MultiWriter(writers...), handlerOptions(level))))
}

func handlerOptions(level string) *slog.HandlerOptions {
	loc := LoadLocalLocation()
	return &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				t := a.Value.Time().In(loc)
				return slog.String(slog.TimeKey, t.Format("2006-01-02 15:04:05"))
			}
			return a
		},
	}
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func LogHeader(version string, cfg *config.Config) {
	slog.Info("redirtxt started", "version", version, "", cfg)
	slog.Info("System", GetOSInfo()...)
}

// LogRequest logs one redirect decision for a request.
func LogRequest(level slog.Level, msg string, uri string, attrs ...slog.Attr) {
	args := make([]any, 0, len(attrs)+1)
	args = append(args, slog.String("uri", uri))
	for _, a := range attrs {
		args = append(args, a)
	}
	slog.Log(context.Background(), level, msg, args...)
}

// LoadLocalLocation tries to detect and load the system local timezone from
// `/etc/localtime` or `/etc/TZ`.
func LoadLocalLocation() *time.Location {
	if _, err := os.Stat("/etc/localtime"); err == nil {
		if loc, _ := time.LoadLocation("Local"); loc != nil {
			return loc
		}
	}
	if data, err := os.ReadFile("/etc/TZ"); err == nil {
		tz := strings.TrimSpace(string(data))
		if strings.HasPrefix(tz, "UTC") {
			return time.UTC
		}
	}
	return time.UTC
}
