package session

import (
	"errors"

	"Song-Rec-Go/pkg/recorder"
	"Song-Rec-Go/pkg/shazam"
	"Song-Rec-Go/pkg/spotify"
)

// Alert is the message shown to the user when a cycle ends in Error.
type Alert struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// AlertFor maps a pipeline error to a user-facing alert.
func AlertFor(err error) Alert {
	switch {
	case errors.Is(err, shazam.ErrNoMatch):
		return Alert{Title: "No track found", Message: "Please try again"}
	case errors.Is(err, shazam.ErrRecordingTooLong):
		return Alert{Title: "Recording too long", Message: "Please record a shorter clip"}
	case errors.Is(err, shazam.ErrEmptyCapture):
		return Alert{Title: "Nothing recorded", Message: "Please try again"}
	case errors.Is(err, spotify.ErrTrackNotFound):
		return Alert{Title: "Song not in catalog", Message: "No recommendations are available for this song"}
	case errors.Is(err, recorder.ErrPermissionDenied):
		return Alert{Title: "Microphone unavailable", Message: "Allow microphone access and try again"}
	case errors.Is(err, recorder.ErrAlreadyRecording):
		return Alert{Title: "Microphone busy", Message: "Another recording is in progress"}
	default:
		return Alert{Title: "Something went wrong", Message: "Please try again"}
	}
}
