// Package handler contains the JSON HTTP handlers of the portfolio API.
//
// WHAT IS A HANDLER?
// In Go, an HTTP handler is anything that implements http.Handler. Most of
// ours are methods with the http.HandlerFunc signature, which chi accepts
// directly.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the request (URL params, query, JSON body)
//  2. Call one service method with the acting user (or nil)
//  3. Write the result, or the error through writeError
//
// Handlers hold no business rules. Who may edit a comment, what a valid
// username is and when a draft is visible are all decided in the service
// layer, which the session manager and the social controllers share.
package handler
