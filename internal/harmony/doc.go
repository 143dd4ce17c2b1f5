// Package harmony implements the Harmony wire format: rendering structured
// conversations into o200k token streams and parsing token streams back into
// messages, incrementally or in one shot.
package harmony
