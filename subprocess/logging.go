package subprocess

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/minthantsin/rtsp-hls-gateway/log"
)

func streamOutput(streamID, channel string, src io.Reader) {
	s := bufio.NewReader(src)
	for {
		var line []byte
		line, err := s.ReadSlice('\n')
		if err == io.EOF && len(line) == 0 {
			break
		}
		if err != nil && err != io.EOF {
			log.Debug(streamID, "transcoder output read error", "channel", channel, "err", err)
			return
		}
		log.Debug(streamID, "transcoder output", "channel", channel, "line", strings.TrimRight(string(line), "\n"))
		if err == io.EOF {
			return
		}
	}
}

// LogOutputs starts new goroutines forwarding cmd's stdout & stderr into the
// stream's logger. Must be called before cmd is started.
func LogOutputs(streamID string, cmd *exec.Cmd) error {
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to open stderr pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	go streamOutput(streamID, "stderr", stderrPipe)
	go streamOutput(streamID, "stdout", stdoutPipe)
	return nil
}
