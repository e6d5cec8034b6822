package main

import (
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"mindcanvas/internal/config"
	"mindcanvas/internal/editor"
	"mindcanvas/internal/exchange"
	"mindcanvas/internal/geometry"
)

type model struct {
	ed     *editor.Editor
	config *config.Config
	log    *log.Logger

	width  int
	height int
	screen Screen

	help       bool
	helpScroll int

	editingID string
	cardInput textarea.Model
	labelID   string
	textInput textinput.Model

	fileOp     FileOperation
	fileFormat exchange.Format
	// txt marks the visual text export, which has no exchange format.
	txt bool

	status      string
	statusError bool
	statusSeq   int

	// pointer state in screen pixels
	pointer      geometry.Point
	hasPointer   bool
	pressAt      point
	pressed      bool
	dragged      bool
	framePending bool

	releaseSeq int
	quitting   bool

	// cmds collects commands requested by callbacks during one Update.
	cmds []tea.Cmd
}

type point struct {
	X, Y int
}

type moverTickMsg struct{ gen uint64 }

type frameMsg struct{}

type keyReleaseMsg struct {
	key string
	seq int
}

type statusClearMsg struct{ seq int }
