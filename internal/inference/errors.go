package inference

import "errors"

// ErrExhaustedRetries indicates the attempt budget ran out without a
// successful response.
var ErrExhaustedRetries = errors.New("inference retries exhausted")

// ErrMalformedResponse indicates the API returned a payload the client
// could not decode.
var ErrMalformedResponse = errors.New("malformed inference response")
