package main

import "time"

// One terminal cell stands for cellWidth x cellHeight screen pixels.
const (
	cellWidth  = 8.0
	cellHeight = 16.0
)

const (
	frameInterval = 16 * time.Millisecond
	// Terminals report no key releases. A held key repeats faster than
	// this, so silence longer than keyReleaseDelay counts as a release.
	keyReleaseDelay = 150 * time.Millisecond
	statusTimeout   = 4 * time.Second
	editorRows      = 5
	defaultBaseName = "mindmap"
)

type Screen int

const (
	ScreenCanvas Screen = iota
	ScreenEditCard
	ScreenEditLabel
	ScreenFileInput
)

type FileOperation int

const (
	FileOpExport FileOperation = iota
	FileOpImport
)

func (s Screen) String() string {
	switch s {
	case ScreenEditCard:
		return "EDIT"
	case ScreenEditLabel:
		return "LABEL"
	case ScreenFileInput:
		return "FILE"
	}
	return "CANVAS"
}
