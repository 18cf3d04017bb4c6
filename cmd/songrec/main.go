// Command songrec identifies the song playing near the microphone, or in an
// audio file, and prints similar tracks.
//
// Usage:
//
//	songrec [flags] <command> [args]
//
// Commands:
//
//	record     - record from the microphone, identify and recommend
//	identify   - identify an existing audio file and recommend
//	recommend  - recommend tracks for a known title and artist
//
// Credentials are read from the environment (SHAZAM_API_KEY,
// SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET) or from the YAML file passed
// with --config.
package main

import (
	"fmt"
	"os"

	"Song-Rec-Go/cmd/songrec/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
