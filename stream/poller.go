package stream

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/minthantsin/rtsp-hls-gateway/log"
	"github.com/minthantsin/rtsp-hls-gateway/metrics"
)

const identifierLength = 8

const defaultPollInterval = time.Second

// ErrStreamNotFound is returned when a segment request references an
// identifier with no live stream in the registry. There is nothing sensible
// to recover from here: /segment.ts is only ever reached after /watch.m3u8
// inserted the stream.
var ErrStreamNotFound = errors.New("no live stream for requested segment")

var errSegmentNotReady = errors.New("segment file not produced yet")

var segmentFilenamePattern = regexp.MustCompile(`^([A-Za-z0-9_-]{8})(\d+)\.ts$`)

// ParseSegmentFilename splits <identifier><index>.ts into its stream
// identifier (the first 8 characters) and segment index.
func ParseSegmentFilename(name string) (string, int, error) {
	match := segmentFilenamePattern.FindStringSubmatch(name)
	if match == nil {
		return "", 0, fmt.Errorf("malformed segment filename %q", name)
	}
	index, err := strconv.Atoi(match[2])
	if err != nil {
		return "", 0, fmt.Errorf("malformed segment index in %q: %w", name, err)
	}
	return match[1], index, nil
}

// SegmentPoller waits for one requested segment file to appear, restarting
// the transcoder at the requested index when gap analysis shows it has fallen
// too far behind (the client seeked) or when the transcoder died.
type SegmentPoller struct {
	Filename string
	StreamID string
	Index    int

	driver   *Driver
	registry *Registry
	stream   *Stream
	maxGap   int
	spawn    func(*Stream) (string, error)

	maxAttempts int
	interval    time.Duration

	// latches preventing duplicate restarts within this poller's lifetime
	transcodeStarting    bool
	newTranscoderStarted bool
}

func NewSegmentPoller(filename string, registry *Registry, driver *Driver, maxGap int) (*SegmentPoller, error) {
	id, index, err := ParseSegmentFilename(filename)
	if err != nil {
		return nil, err
	}

	maxAttempts := 2 * driver.SegmentLength
	if maxAttempts < 10 {
		maxAttempts = 10
	}

	return &SegmentPoller{
		Filename:    filename,
		StreamID:    id,
		Index:       index,
		driver:      driver,
		registry:    registry,
		stream:      registry.Get(id),
		spawn:       driver.Spawn,
		maxGap:      maxGap,
		maxAttempts: maxAttempts,
		interval:    defaultPollInterval,
	}, nil
}

// Wait polls about once per second until the segment file can be opened or
// the attempt budget is exhausted. The returned file is ready for streaming
// to the response; deletion of an open file by a cleanup sweep is benign.
func (p *SegmentPoller) Wait(ctx context.Context) (*os.File, error) {
	var f *os.File
	start := time.Now()

	attempt := func() error {
		var err error
		f, err = p.poll()
		return err
	}
	schedule := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.interval), uint64(p.maxAttempts-1)),
		ctx,
	)
	if err := backoff.Retry(attempt, schedule); err != nil {
		if errors.Is(err, errSegmentNotReady) {
			metrics.Metrics.PollerExhaustedCount.Inc()
			return nil, fmt.Errorf("gave up waiting for %s after %d attempts", p.Filename, p.maxAttempts)
		}
		return nil, err
	}

	metrics.Metrics.SegmentWaitDurationSec.Observe(time.Since(start).Seconds())
	return f, nil
}

func (p *SegmentPoller) poll() (*os.File, error) {
	if f, err := os.Open(filepath.Join(p.driver.Dir, p.Filename)); err == nil {
		return f, nil
	}

	if p.stream == nil {
		return nil, backoff.Permanent(ErrStreamNotFound)
	}
	p.stream.Touch()

	if p.shouldStartTranscode() && !p.newTranscoderStarted {
		p.transcodeStarting = true
		p.newTranscoderStarted = true

		if p.stream.Transcoding() {
			log.Log(p.StreamID, "seek detected, restarting transcoder", "segment", p.Index)
			p.stream.stopTranscoder()
		} else {
			log.Log(p.StreamID, "transcoder not running, respawning", "segment", p.Index)
		}
		p.stream.setSeekStart(p.Index)
		metrics.Metrics.TranscoderRestarts.Inc()

		if _, err := p.spawn(p.stream); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to restart transcoder: %w", err))
		}
		p.transcodeStarting = false
	}

	log.Debug(p.StreamID, "segment not ready", "segment", p.Index)
	return nil, errSegmentNotReady
}

// shouldStartTranscode implements the restart decision. The caller has
// already established that the stream is bound.
func (p *SegmentPoller) shouldStartTranscode() bool {
	if p.transcodeStarting {
		return false
	}
	if !p.stream.Transcoding() {
		return true
	}
	if p.newTranscoderStarted {
		return false
	}
	gap := p.Index - currentTranscodingIndex(p.driver.Dir, p.StreamID)
	return gap >= p.maxGap
}
