package stream

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/minthantsin/rtsp-hls-gateway/log"
)

// SweepTranscodeDir creates the transcode dir if needed and removes leftover
// artifacts from a previous run. Nothing in the dir survives a process
// restart by design, so anything matching the artifact extensions is garbage.
func SweepTranscodeDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create transcode dir %s: %w", dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read transcode dir %s: %w", dir, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".ts") && !strings.HasSuffix(name, ".m3u8") {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			log.LogNoStreamID("failed to remove leftover artifact", "path", name, "err", err)
		}
	}
	return nil
}

// removeStreamFiles deletes every artifact with the stream's identifier
// prefix. Best effort: failures are logged, a concurrent reader holding an
// open handle keeps its file until close.
func removeStreamFiles(dir, id string) {
	matches, err := filepath.Glob(filepath.Join(dir, id+"*"))
	if err != nil {
		log.LogError(id, "failed to glob stream artifacts", err, "dir", dir)
		return
	}
	for _, match := range matches {
		if err := os.Remove(match); err != nil {
			log.LogError(id, "failed to remove stream artifact", err, "path", match)
		}
	}
	log.Log(id, "removed stream artifacts", "count", len(matches))
}
