package errors

import (
	"encoding/json"
	"net/http"

	"github.com/minthantsin/rtsp-hls-gateway/log"
)

type apiError struct {
	Msg    string `json:"message"`
	Status int    `json:"status"`
	Err    error  `json:"-"`
}

func writeHttpError(w http.ResponseWriter, msg string, status int, err error) apiError {
	var errorDetail string
	if err != nil {
		errorDetail = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg, "error_detail": errorDetail}); err != nil {
		log.LogNoStreamID("error writing HTTP error", "http_error_msg", msg, "error", err)
	}

	return apiError{msg, status, err}
}

// HTTP Errors
func WriteHTTPBadRequest(w http.ResponseWriter, msg string, err error) apiError {
	return writeHttpError(w, msg, http.StatusBadRequest, err)
}

func WriteHTTPNotFound(w http.ResponseWriter, msg string, err error) apiError {
	return writeHttpError(w, msg, http.StatusNotFound, err)
}

func WriteHTTPInternalServerError(w http.ResponseWriter, msg string, err error) apiError {
	return writeHttpError(w, msg, http.StatusInternalServerError, err)
}

func WriteHTTPServiceUnavailable(w http.ResponseWriter, msg string, err error) apiError {
	return writeHttpError(w, msg, http.StatusServiceUnavailable, err)
}

// WriteHTTPMissingQuery reports a missing mandatory query parameter. The
// original gateway answered these with a blanket 500; strict mode uses the
// more accurate 400.
func WriteHTTPMissingQuery(w http.ResponseWriter, strict bool, msg string, err error) apiError {
	if strict {
		return WriteHTTPBadRequest(w, msg, err)
	}
	return WriteHTTPInternalServerError(w, msg, err)
}

// WriteHTTPAdmissionRejected reports a full streams registry. Legacy status is
// 500, strict mode answers 503.
func WriteHTTPAdmissionRejected(w http.ResponseWriter, strict bool, msg string, err error) apiError {
	if strict {
		return WriteHTTPServiceUnavailable(w, msg, err)
	}
	return WriteHTTPInternalServerError(w, msg, err)
}
