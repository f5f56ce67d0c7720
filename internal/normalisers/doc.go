// Package normalisers provides implementations of the Normaliser interface
// for the content types the connectors emit. Each normaliser knows how to
// strip one kind of provider markup down to plain text.
//
// Normalisers are registered with the Registry at startup; the registry
// dispatches each record to the highest-priority normaliser for its
// content type, falling back to plain text for anything unrecognised.
package normalisers
