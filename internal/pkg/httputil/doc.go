// Package httputil provides shared JSON response and request helpers for
// the relay's HTTP handlers, so every endpoint answers with the same
// envelope and logs failures the same way.
package httputil
