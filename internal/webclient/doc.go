// Package webclient implements the fetch collaborator: an HTTP client
// with retries, backoff, and response size limits. The crawler treats it
// as a black box that turns a URL into raw content; all transport
// mechanics live here.
package webclient
