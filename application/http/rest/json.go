package rest

import (
	"encoding/json"

	"http-fixture/application/http"
)

// JSONResponse renders data as a flat JSON object.
// A nil or empty map with 204 produces no body at all.
func JSONResponse(code int, data map[string]string) *http.Response {
	res := http.NewResponse(code)
	if len(data) == 0 && code == 204 {
		return res
	}

	if data == nil {
		data = map[string]string{}
	}

	// Marshaling a map of strings never fails.
	b, _ := json.Marshal(data)
	return res.SetJSON(b)
}

func errorEnvelope(code int, statusMessage, message string) *http.Response {
	res := JSONResponse(code, map[string]string{
		"error":   statusMessage,
		"message": message,
	})
	res.StatusMessage = statusMessage
	return res
}
