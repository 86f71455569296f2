// Package httputil provides shared HTTP response/request helpers for the
// tools API handlers: consistent JSON envelopes, error structures and body
// decoding.
package httputil
