package handlers

import (
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/minthantsin/rtsp-hls-gateway/log"
)

// Ok is a trivial healthcheck endpoint.
func (c *GatewayHandlersCollection) Ok() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		if _, err := io.WriteString(w, "OK"); err != nil {
			log.LogNoStreamID("Failed to write HTTP response for " + req.URL.Path)
		}
	}
}
