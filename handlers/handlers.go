package handlers

import (
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/minthantsin/rtsp-hls-gateway/errors"
	"github.com/minthantsin/rtsp-hls-gateway/log"
	"github.com/minthantsin/rtsp-hls-gateway/metrics"
	"github.com/minthantsin/rtsp-hls-gateway/stream"
)

const hlsContentType = "application/vnd.apple.mpegurl"
const segmentContentType = "video/mp2t"

type GatewayHandlersCollection struct {
	Registry *stream.Registry
	Driver   *stream.Driver

	SelfDestructDuration time.Duration
	SegmentMaxGap        int
	StrictStatus         bool
}

// Watch admits a new upstream session: it probes the source, spawns the
// transcoder and answers with the synthesized VOD manifest. Segment requests
// derived from that manifest are served by Segment.
func (c *GatewayHandlersCollection) Watch() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		metrics.Metrics.WatchRequestCount.Inc()

		source := req.URL.Query().Get("url")
		if source == "" {
			errors.WriteHTTPMissingQuery(w, c.StrictStatus, "missing url query parameter", nil)
			return
		}

		id := c.Registry.NewID()
		s := stream.New(id, source, c.Driver.Dir, c.SelfDestructDuration, func() {
			c.Registry.Remove(id)
			metrics.Metrics.ActiveStreams.Dec()
		})
		if err := c.Registry.Store(s); err != nil {
			errors.WriteHTTPAdmissionRejected(w, c.StrictStatus, "too many concurrent streams", err)
			return
		}
		metrics.Metrics.ActiveStreams.Inc()
		log.AddContext(id, "source", source)

		manifest, err := c.Driver.Spawn(s)
		if err != nil {
			// failed before start: drop the registry entry and any files
			s.Kill(true)
			log.LogError(id, "failed to start stream", err)
			errors.WriteHTTPInternalServerError(w, "failed to start stream", err)
			return
		}

		w.Header().Set("Content-Type", hlsContentType)
		if _, err := io.WriteString(w, manifest); err != nil {
			log.LogError(id, "failed to write manifest response", err)
		}
	}
}

// Segment waits for one media segment to be produced and streams it from
// disk. The poller may restart the transcoder at the requested index when the
// client has seeked.
func (c *GatewayHandlersCollection) Segment() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		metrics.Metrics.SegmentRequestCount.Inc()

		filename := req.URL.Query().Get("file")
		if filename == "" {
			errors.WriteHTTPMissingQuery(w, c.StrictStatus, "missing file query parameter", nil)
			return
		}

		poller, err := stream.NewSegmentPoller(filename, c.Registry, c.Driver, c.SegmentMaxGap)
		if err != nil {
			errors.WriteHTTPBadRequest(w, "invalid segment filename", err)
			return
		}

		f, err := poller.Wait(req.Context())
		if err != nil {
			if stderrors.Is(err, stream.ErrStreamNotFound) {
				errors.WriteHTTPNotFound(w, "unknown stream", err)
				return
			}
			log.LogError(poller.StreamID, "segment request failed", err, "segment", poller.Index)
			errors.WriteHTTPInternalServerError(w, "segment not available", err)
			return
		}
		defer f.Close()

		w.Header().Set("Content-Type", segmentContentType)
		if _, err := io.Copy(w, f); err != nil {
			// client went away mid-segment; the stream self-destructs later
			log.Debug(poller.StreamID, "segment response aborted", "err", err)
		}
	}
}
