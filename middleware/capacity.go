package middleware

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/minthantsin/rtsp-hls-gateway/errors"
	"github.com/minthantsin/rtsp-hls-gateway/stream"
)

// HasStreamCapacity rejects new upstream sessions once the registry holds the
// configured maximum of concurrent streams. Runs before the handler so a
// rejected request never reaches the probe.
func HasStreamCapacity(registry *stream.Registry, strictStatus bool, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if registry.Full() {
			errors.WriteHTTPAdmissionRejected(w, strictStatus, "too many concurrent streams", nil)
			return
		}

		next(w, r, ps)
	}
}
