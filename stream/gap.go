package stream

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/grafov/m3u8"

	"github.com/minthantsin/rtsp-hls-gateway/log"
)

// currentTranscodingIndex reports the highest segment index the transcoder
// has produced so far. The tool-written playlist is authoritative but can be
// momentarily unreadable while it rotates, so a directory listing serves as
// the eventually-correct fallback. When both fail the index is 0.
func currentTranscodingIndex(dir, id string) int {
	idx, err := indexFromToolPlaylist(dir, id)
	if err == nil {
		log.Debug(id, "gap analysis", "method", "m3u8", "index", idx)
		return idx
	}
	log.Debug(id, "gap analysis falling back to directory listing", "err", err)

	idx, err = indexFromSegmentFiles(dir, id)
	if err == nil {
		log.Debug(id, "gap analysis", "method", "file", "index", idx)
		return idx
	}
	log.Debug(id, "gap analysis found no produced segments", "err", err)
	return 0
}

// indexFromToolPlaylist decodes the live <id>.m3u8 the segment muxer appends
// to and returns the index of the last matching segment URI in file order. A
// readable playlist without matches counts as index 0.
func indexFromToolPlaylist(dir, id string) (int, error) {
	f, err := os.Open(filepath.Join(dir, id+".m3u8"))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	playlist, _, err := m3u8.DecodeFrom(bufio.NewReader(f), false)
	if err != nil {
		return 0, fmt.Errorf("failed to decode transcoder playlist: %w", err)
	}
	mediaPlaylist, ok := playlist.(*m3u8.MediaPlaylist)
	if !ok {
		return 0, fmt.Errorf("transcoder playlist is not a media playlist")
	}

	pattern := regexp.MustCompile("^" + regexp.QuoteMeta(id) + `(\d+)\.ts$`)
	last := 0
	for _, segment := range mediaPlaylist.GetAllSegments() {
		match := pattern.FindStringSubmatch(path.Base(segment.URI))
		if match == nil {
			continue
		}
		if idx, err := strconv.Atoi(match[1]); err == nil {
			last = idx
		}
	}
	return last, nil
}

// indexFromSegmentFiles parses the index out of the lexicographically last
// <id>*.ts entry in the transcode dir.
func indexFromSegmentFiles(dir, id string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	// ReadDir returns entries sorted by filename, keep the last match
	var last string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, id) && strings.HasSuffix(name, ".ts") {
			last = name
		}
	}
	if last == "" {
		return 0, fmt.Errorf("no segment files for %s in %s", id, dir)
	}

	idx, err := strconv.Atoi(strings.TrimSuffix(last[len(id):], ".ts"))
	if err != nil {
		return 0, fmt.Errorf("unparsable segment filename %q: %w", last, err)
	}
	return idx, nil
}
