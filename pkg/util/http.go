package util

import (
	"encoding/json"
	"net/http"

	"github.com/scoir/attestor/pkg/errcode"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	ErrorCode    int    `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func WriteSuccess(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// WriteJSON marshals v as a successful response.
func WriteJSON(w http.ResponseWriter, v interface{}) {
	d, err := json.Marshal(v)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, d)
}

// WriteError writes err with the HTTP status of its error code.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorStatus(w, StatusOf(err), err)
}

func WriteErrorStatus(w http.ResponseWriter, status int, err error) {
	body := &ErrorResponse{ErrorCode: errcode.Code(err), ErrorMessage: err.Error()}
	d, _ := json.Marshal(body)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(d)
}

// StatusOf maps an error to an HTTP status.
func StatusOf(err error) int {
	switch {
	case errcode.Is(err, errcode.ErrEvidenceNotFound), errcode.Is(err, errcode.ErrSchemaNotFound):
		return http.StatusNotFound
	case errcode.Is(err, errcode.ErrEvidenceAlreadyExists):
		return http.StatusConflict
	case errcode.Is(err, errcode.ErrLedgerCallFailure), errcode.Is(err, errcode.ErrIdentityDocumentUnavailable):
		return http.StatusBadGateway
	case errcode.Code(err) != errcode.ErrCredentialError.Code:
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}
