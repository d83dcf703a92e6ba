package stream

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/minthantsin/rtsp-hls-gateway/config"
	"github.com/minthantsin/rtsp-hls-gateway/log"
	"github.com/minthantsin/rtsp-hls-gateway/metrics"
	"github.com/minthantsin/rtsp-hls-gateway/subprocess"
	"github.com/minthantsin/rtsp-hls-gateway/video"
)

// Driver probes upstream sources and launches the transcoder child process
// that turns them into MPEG-TS segments on disk.
type Driver struct {
	Prober        video.Prober
	FFmpegPath    string
	Dir           string
	SegmentLength int // seconds
}

// Spawn probes the stream's upstream, persists the synthesized VOD manifest
// and starts the transcoder at the stream's current seek start segment.
// Concurrent spawns for one stream are serialized; a caller that loses the
// race gets the winner's manifest and no second child is started. Exactly one
// of manifest or error is returned per invocation; runtime failures after a
// successful start are handled by the exit observer instead.
func (d *Driver) Spawn(s *Stream) (string, error) {
	s.spawnMu.Lock()
	defer s.spawnMu.Unlock()

	if s.Dead() {
		return "", fmt.Errorf("stream %s is already torn down", s.ID)
	}

	masterPath := filepath.Join(d.Dir, s.ID+"_master.m3u8")
	if s.Transcoding() {
		// a concurrent request already won the kill-then-spawn race; answer
		// with the manifest its spawn persisted instead of starting a twin
		persisted, err := os.ReadFile(masterPath)
		if err != nil {
			return "", fmt.Errorf("transcoder already running but master manifest unreadable: %w", err)
		}
		return string(persisted), nil
	}

	duration, err := d.Prober.Duration(s.ID, s.SourceURL)
	if err != nil {
		return "", fmt.Errorf("probe failed: %w", err)
	}

	manifest := Synthesize(duration, s.ID, d.SegmentLength)
	if err := os.WriteFile(masterPath, []byte(manifest), 0644); err != nil {
		return "", fmt.Errorf("failed to persist master manifest: %w", err)
	}

	cmd := d.transcodeCommand(s)
	if err := subprocess.LogOutputs(s.ID, cmd); err != nil {
		return "", err
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("transcoder failed to start: %w", err)
	}

	if !s.adoptTranscoder(cmd) {
		// torn down between the dead check and adoption; reap the orphan
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		go func() { _ = cmd.Wait() }()
		return "", fmt.Errorf("stream %s torn down during spawn", s.ID)
	}
	metrics.Metrics.TranscoderStarts.Inc()
	log.Log(s.ID, "transcoder started",
		"source", s.SourceURL,
		"duration_secs", duration,
		"seek_start_segment", s.SeekStart(),
	)

	go d.observe(s, cmd)
	return manifest, nil
}

// transcodeCommand builds the argument vector for the external tool. Video is
// copied, audio is transcoded to AAC, and the segment muxer writes
// <id><index>.ts files plus the live <id>.m3u8 list used for gap analysis.
func (d *Driver) transcodeCommand(s *Stream) *exec.Cmd {
	seekStart := s.SeekStart()
	seekSecs := seekStart * d.SegmentLength

	inputArgs := ffmpeg.KwArgs{
		"rtsp_transport":  "udp",
		"fflags":          "+genpts",
		"noaccurate_seek": "",
		"max_delay":       "0",
		"user_agent":      config.RTSPUserAgent,
	}
	if seekStart > 0 {
		inputArgs["ss"] = seekSecs
	}

	outputArgs := ffmpeg.KwArgs{
		"c:v":                  "copy",
		"c:a":                  "aac",
		"f":                    "segment",
		"segment_time":         d.SegmentLength,
		"segment_start_number": seekStart,
		"segment_list":         filepath.Join(d.Dir, s.ID+".m3u8"),
		"segment_list_type":    "m3u8",
		"break_non_keyframes":  "1",
		"avoid_negative_ts":    "disabled",
		"flags":                "-global_header",
		"vsync":                "0",
	}
	if seekStart > 0 {
		// keep PTS aligned with the EXTINF positions the master manifest advertises
		outputArgs["initial_offset"] = seekSecs
	}

	args := ffmpeg.Input(s.SourceURL, inputArgs).
		Output(filepath.Join(d.Dir, s.ID+"%d.ts"), outputArgs).
		OverWriteOutput().
		GetArgs()

	bin := d.FFmpegPath
	if bin == "" {
		bin = "ffmpeg"
	}
	return exec.Command(bin, args...)
}

// observe reaps the child and decides what its exit means. A handle that was
// already superseded belongs to a seek restart or an explicit kill and needs
// no further action.
func (d *Driver) observe(s *Stream, cmd *exec.Cmd) {
	err := cmd.Wait()
	if !s.releaseTranscoderIf(cmd) {
		return
	}
	if err != nil {
		log.LogError(s.ID, "transcoder exited with error, next segment request will respawn it", err)
		return
	}
	log.Log(s.ID, "transcoder reached end of stream")
	s.Kill(false)
}
