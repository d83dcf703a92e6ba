package config

import (
	"os"

	"github.com/go-kit/log"
)

// Version is overridden at build time
var Version = "unknown"

// Paths to the bundled ffmpeg build we shell out to for probing and
// transcoding. Overridable with -ffmpeg-path / -ffprobe-path.
var (
	DefaultFFmpegPath  = "ffmpeg_build/ffmpeg"
	DefaultFFprobePath = "ffmpeg_build/ffprobe"
)

// User agent reported to upstream RTSP servers.
const RTSPUserAgent = "rtsp-hls-gateway"

// Global variable, but easier than passing a logger around throughout the system
var Logger log.Logger = log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))

func init() {
	Logger = log.With(Logger, "ts", log.DefaultTimestampUTC)
}
