// Package tokenizer adapts the o200k byte-level BPE to the Harmony token
// space.
//
// The public o200k_base table carries no Harmony structural tokens, so this
// package layers the Harmony special-token vocabulary (ids 199998 through
// 201088) on top of tiktoken-go: encoding splits input around allowed
// special spellings before handing the ordinary segments to the BPE, and
// decoding splices special spellings back into the byte stream.
package tokenizer
