package log

import (
	"os"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/patrickmn/go-cache"
)

var loggerCache *cache.Cache
var defaultLoggerCacheExpiry = 6 * time.Hour

// Debug chatter (poller ticks, gap analysis results) is suppressed unless
// enabled at startup with -debug.
var Verbose bool

func init() {
	loggerCache = cache.New(defaultLoggerCacheExpiry, 10*time.Minute)
}

// Permanently add context to the logger. Any future logging for this stream ID will include this context
func AddContext(streamID string, keyvals ...interface{}) {
	_ = loggerCache.Add(streamID, kitlog.With(getLogger(streamID), keyvals...), defaultLoggerCacheExpiry)
}

func Log(streamID string, message string, keyvals ...interface{}) {
	_ = kitlog.With(getLogger(streamID), "msg", message).Log(keyvals...)
}

// Log in situations where we don't have a stream to attribute the message to.
// Should be used sparingly and with as much context inserted into the message as possible
func LogNoStreamID(message string, keyvals ...interface{}) {
	_ = kitlog.With(newLogger(), "msg", message).Log(keyvals...)
}

func LogError(streamID string, message string, err error, keyvals ...interface{}) {
	msgLogger := kitlog.With(getLogger(streamID), "msg", message)
	errLogger := kitlog.With(msgLogger, "err", err.Error())
	_ = errLogger.Log(keyvals...)
}

func Debug(streamID string, message string, keyvals ...interface{}) {
	if !Verbose {
		return
	}
	Log(streamID, message, keyvals...)
}

// RemoveContext drops the cached logger for a stream once it is torn down.
func RemoveContext(streamID string) {
	loggerCache.Delete(streamID)
}

func getLogger(streamID string) kitlog.Logger {
	logger, found := loggerCache.Get(streamID)
	if found {
		return logger.(kitlog.Logger)
	}

	streamLogger := kitlog.With(newLogger(), "stream_id", streamID)
	err := loggerCache.Add(streamID, streamLogger, defaultLoggerCacheExpiry)
	if err != nil {
		_ = streamLogger.Log("msg", "error adding logger to cache", "stream_id", streamID)
	}
	return streamLogger
}

func newLogger() kitlog.Logger {
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	return kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)
}
