// Package backend implements the HTTP client for the SenseGrid backend
// API. Every delivery failure is classified as either a connectivity
// failure (no response) or a rejection (error response); callers rely on
// that split to decide whether a retry attempt was consumed.
package backend
