// Package httputil holds the JSON envelope helpers the API handlers
// respond through. Handlers never write to an http.ResponseWriter
// directly, so every endpoint shares one response and error shape.
package httputil
