package errors

import (
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteHTTPErrorStatusAndBody(t *testing.T) {
	require := require.New(t)

	rr := httptest.NewRecorder()
	WriteHTTPInternalServerError(rr, "something broke", fmt.Errorf("inner detail"))

	require.Equal(500, rr.Result().StatusCode)
	require.JSONEq(`{"error": "something broke", "error_detail": "inner detail"}`, rr.Body.String())
}

func TestLegacyStatusCompatibility(t *testing.T) {
	require := require.New(t)

	rr := httptest.NewRecorder()
	WriteHTTPAdmissionRejected(rr, false, "too many streams", nil)
	require.Equal(500, rr.Result().StatusCode)

	rr = httptest.NewRecorder()
	WriteHTTPAdmissionRejected(rr, true, "too many streams", nil)
	require.Equal(503, rr.Result().StatusCode)

	rr = httptest.NewRecorder()
	WriteHTTPMissingQuery(rr, false, "missing url", nil)
	require.Equal(500, rr.Result().StatusCode)

	rr = httptest.NewRecorder()
	WriteHTTPMissingQuery(rr, true, "missing url", nil)
	require.Equal(400, rr.Result().StatusCode)
}
