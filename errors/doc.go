// Package errors provides the SDK's internal error handling: classification
// of transport and controller errors into transient, invalid, and fatal
// classes, plus helpers for consistent wrapping.
//
// These errors never cross the SDK's public boundary. Controllers translate
// them into types.Status at the edge (see the link package); the classes map
// onto status codes: transient failures become TIMEOUT or SERVICE_NOT_READY,
// invalid input becomes INTERNAL_ERROR, and explicit remote rejections become
// SERVICE_ERROR.
package errors
