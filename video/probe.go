package video

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gopkg.in/vansante/go-ffprobe.v2"
)

const probeTimeout = 60 * time.Second

// Prober determines the container duration of an upstream source. The
// interface exists so handler and driver tests can substitute a fake.
type Prober interface {
	Duration(requestID, source string) (float64, error)
}

type Probe struct{}

// Duration probes the upstream with ffprobe and returns the container
// duration in seconds. Transient upstream hiccups are retried before the
// probe is declared failed.
func (p Probe) Duration(streamID, source string) (float64, error) {
	var data *ffprobe.ProbeData
	operation := func() error {
		probeCtx, probeCancel := context.WithTimeout(context.Background(), probeTimeout)
		defer probeCancel()
		var err error
		data, err = ffprobe.ProbeURL(probeCtx, source, "-loglevel", "error")
		return err
	}

	backOff := backoff.NewExponentialBackOff()
	backOff.InitialInterval = 500 * time.Millisecond
	backOff.MaxInterval = 2 * time.Second
	backOff.MaxElapsedTime = 0 // don't impose a timeout as part of the retries
	err := backoff.Retry(operation, backoff.WithMaxRetries(backOff, 3))
	if err != nil {
		return 0, fmt.Errorf("error probing %s: %w", source, err)
	}

	if data.Format == nil {
		return 0, fmt.Errorf("error probing %s: format information missing", source)
	}
	duration := data.Format.DurationSeconds
	if duration <= 0 {
		return 0, fmt.Errorf("error probing %s: container reported no duration", source)
	}
	return duration, nil
}

// SetFFprobePath points the probe at a specific ffprobe binary instead of
// whatever is on PATH.
func SetFFprobePath(path string) {
	if path != "" {
		ffprobe.SetFFProbeBinPath(path)
	}
}
