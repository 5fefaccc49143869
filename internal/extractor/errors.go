package extractor

import "fmt"

// GatewayError reports that the completion service could not be reached,
// timed out, or answered with an error.
type GatewayError struct {
	Task TaskKind
	Err  error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("model gateway (%s): %v", e.Task, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// MalformedOutputError reports a model response that is not usable JSON or
// misses required fields. Raw holds the response as received.
type MalformedOutputError struct {
	Reason string
	Raw    string
}

func (e *MalformedOutputError) Error() string {
	return "malformed model output: " + e.Reason
}
