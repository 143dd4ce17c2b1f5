// Package main provides the harmony CLI: render conversations to tokens and
// parse token streams back into messages from the command line.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/zacharytamas/harmony"
)

const version = "v0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	enc, err := harmony.LoadEncoding(harmony.HarmonyGptOss)
	if err != nil {
		fatal(err)
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("harmony %s\n", version)
	case "encode":
		encodeCmd(enc, os.Args[2:])
	case "decode":
		decodeCmd(enc, os.Args[2:])
	case "render":
		renderCmd(enc, os.Args[2:])
	case "parse":
		parseCmd(enc, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: harmony <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  encode [-specials] <text>   Tokenize text; -specials recognizes reserved spellings")
	fmt.Fprintln(os.Stderr, "  decode <id> [<id>...]       Decode token ids to text")
	fmt.Fprintln(os.Stderr, "  render [-next <role>]       Render conversation JSON from stdin to token ids")
	fmt.Fprintln(os.Stderr, "  parse [-role <role>]        Parse whitespace-separated ids from stdin to JSON")
	fmt.Fprintln(os.Stderr, "  version                     Show version")
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "harmony: %v\n", err)
	os.Exit(1)
}

func encodeCmd(enc *harmony.Encoding, args []string) {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	specials := fs.Bool("specials", false, "recognize reserved token spellings")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		usage()
		os.Exit(2)
	}
	var allowed []string
	if *specials {
		allowed = enc.SpecialTokens()
	}
	for i, tok := range enc.Encode(fs.Arg(0), allowed) {
		if i > 0 {
			fmt.Print(" ")
		}
		fmt.Print(tok)
	}
	fmt.Println()
}

func decodeCmd(enc *harmony.Encoding, args []string) {
	tokens := make([]uint32, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			fatal(fmt.Errorf("invalid token id %q: %w", arg, err))
		}
		tokens = append(tokens, uint32(id))
	}
	text, err := enc.DecodeUTF8(tokens)
	if err != nil {
		fatal(err)
	}
	fmt.Println(text)
}

func renderCmd(enc *harmony.Encoding, args []string) {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	next := fs.String("next", "", "append a <|start|> header for this role")
	_ = fs.Parse(args)

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		fatal(err)
	}
	var convo harmony.Conversation
	if err := json.Unmarshal(data, &convo); err != nil {
		fatal(fmt.Errorf("invalid conversation JSON: %w", err))
	}

	var tokens []uint32
	if *next != "" {
		tokens, err = enc.RenderConversationForCompletion(convo, harmony.Role(*next), nil)
	} else {
		tokens, err = enc.RenderConversation(convo, nil)
	}
	if err != nil {
		fatal(err)
	}
	for i, tok := range tokens {
		if i > 0 {
			fmt.Print(" ")
		}
		fmt.Print(tok)
	}
	fmt.Println()
}

func parseCmd(enc *harmony.Encoding, args []string) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	role := fs.String("role", "", "default role for a stream that begins mid-message")
	_ = fs.Parse(args)

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		fatal(err)
	}
	var tokens []uint32
	for _, field := range strings.Fields(string(data)) {
		id, err := strconv.ParseUint(field, 10, 32)
		if err != nil {
			fatal(fmt.Errorf("invalid token id %q: %w", field, err))
		}
		tokens = append(tokens, uint32(id))
	}

	messages, err := enc.ParseMessagesFromCompletionTokens(tokens, harmony.Role(*role))
	if err != nil {
		fatal(err)
	}
	out, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(out))
}
