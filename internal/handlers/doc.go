// Package handlers provides the built-in event handlers.
//
// Only handlers that keep the session in step with the server live here.
// Game rendering belongs to the presentation layer; anything else is shown
// as plain text through Notice.
package handlers
