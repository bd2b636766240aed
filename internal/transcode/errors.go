// Package transcode converts between the partners' XML fragments and the
// modernized system's JSON without a shared schema. Array detection and
// numeric typing are configuration-driven: singular/plural name pairs mark
// arrays, an allow-list of field names marks numeric literals.
package transcode

import "fmt"

// InvalidXMLError marks input that is not well-formed XML, or XML the
// converter refuses to transcode (an element mixing child elements and text).
type InvalidXMLError struct{ Err error }

func (e InvalidXMLError) Error() string { return fmt.Sprintf("invalid xml: %v", e.Err) }
func (e InvalidXMLError) Unwrap() error { return e.Err }

// InvalidJSONError marks input that cannot be parsed as JSON.
type InvalidJSONError struct{ Err error }

func (e InvalidJSONError) Error() string { return fmt.Sprintf("invalid json: %v", e.Err) }
func (e InvalidJSONError) Unwrap() error { return e.Err }
