package documents

import "errors"

// ErrNotFound indicates the document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrInvalidInput indicates a malformed upload request.
var ErrInvalidInput = errors.New("invalid input")
