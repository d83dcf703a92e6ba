package config

import (
	"flag"
	"fmt"
	"time"
)

type Cli struct {
	HTTPAddress          string
	TranscodeDir         string
	SegmentDuration      int
	SegmentMaxGap        int
	SelfDestructDuration time.Duration
	MaxConcurrentStreams int
	FFmpegPath           string
	FFprobePath          string
	Debug                bool
	StrictStatus         bool
}

// AddrFlag parses a TCP listen address, accepting a bare port number for
// compatibility with older deployments that only configured "server_port".
func AddrFlag(fs *flag.FlagSet, dest *string, name, value, usage string) {
	*dest = value
	fs.Func(name, usage, func(s string) error {
		if s == "" {
			return fmt.Errorf("empty listen address")
		}
		if isPort(s) {
			*dest = "0.0.0.0:" + s
			return nil
		}
		*dest = s
		return nil
	})
}

func isPort(s string) bool {
	if len(s) == 0 || len(s) > 5 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
