// Package handlers provides the HTTP handlers of the Seaward token API.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/seaward-io/seaward/internal/logger"
	"github.com/seaward-io/seaward/pkg/token"
)

// Problem represents an RFC 7807 "problem details" response.
// https://tools.ietf.org/html/rfc7807
type Problem struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// ContentTypeProblemJSON is the Content-Type for RFC 7807 problem responses.
const ContentTypeProblemJSON = "application/problem+json"

// WriteProblem writes an RFC 7807 problem response.
func WriteProblem(w http.ResponseWriter, status int, title, detail string) {
	problem := &Problem{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	}

	w.Header().Set("Content-Type", ContentTypeProblemJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

// WriteError renders any error as a problem response. Registry errors
// carry their own status mapping; everything else is a 500 with the
// detail kept out of the response body.
func WriteError(w http.ResponseWriter, err error) {
	if te := token.AsError(err); te != nil {
		WriteProblem(w, te.HTTPStatus(), http.StatusText(te.HTTPStatus()), te.Message)
		return
	}
	logger.Error("request failed", "error", err)
	WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "internal error")
}

// BadRequest writes a 400 Bad Request problem response.
func BadRequest(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusBadRequest, "Bad Request", detail)
}

// MethodNotAllowed writes a 405 problem response.
func MethodNotAllowed(w http.ResponseWriter) {
	WriteProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteJSONOK writes a 200 OK JSON response.
func WriteJSONOK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, data)
}
