package main

import "net/http"

// apiError is a domain error that already knows its HTTP status. Session
// operations return these; anything else reaching the boundary is reported
// as a generic 500 without leaking internals.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string { return e.Message }

func errValidation(msg string) *apiError {
	return &apiError{Status: http.StatusBadRequest, Message: msg}
}

func errUnauthorized(msg string) *apiError {
	return &apiError{Status: http.StatusUnauthorized, Message: msg}
}

func errNotFound(msg string) *apiError {
	return &apiError{Status: http.StatusNotFound, Message: msg}
}

func errConflict(msg string) *apiError {
	return &apiError{Status: http.StatusConflict, Message: msg}
}
