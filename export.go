package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mindcanvas/internal/exchange"
)

// Export opens the filename prompt for an export in format.
func (m *model) Export(format string) {
	f, err := exchange.ParseFormat(format)
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.StopEditing()
	m.fileOp, m.fileFormat = FileOpExport, f
	m.openPrompt(ScreenFileInput, defaultBaseName+f.Extension())
}

// Import opens the filename prompt for an import.
func (m *model) Import() {
	m.StopEditing()
	m.fileOp = FileOpImport
	m.openPrompt(ScreenFileInput, "")
}

func (m *model) fileOpTitle() string {
	if m.fileOp == FileOpImport {
		return "Import filename (.md, .mmd, .json)"
	}
	return fmt.Sprintf("Export %s filename (.txt for a text snapshot)", m.fileFormat)
}

// runFileOp runs the prompted operation. The prompt stays open on a
// missing name so it can be corrected.
func (m *model) runFileOp(name string) {
	if name == "" {
		m.setStatus("filename required", true)
		return
	}
	m.closePrompt()

	var (
		msg string
		err error
	)
	switch m.fileOp {
	case FileOpExport:
		msg, err = m.exportFile(m.config.SavePath(name))
	case FileOpImport:
		msg, err = m.importFile(m.importPath(name))
	}
	if err != nil {
		m.log.Error("file operation failed", "name", name, "err", err)
		m.setStatus(err.Error(), true)
		return
	}
	m.Status(msg)
}

func (m *model) exportFile(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		if err := m.exportVisualTXT(path); err != nil {
			return "", err
		}
		return "saved " + path, nil
	}

	f := m.fileFormat
	if byExt, ok := exchange.FormatFromPath(path); ok {
		f = byExt
	} else {
		path += f.Extension()
	}
	var buf bytes.Buffer
	if err := m.ed.Export(&buf, f); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return fmt.Sprintf("exported %s to %s", f, path), nil
}

// importPath prefers a file relative to the working directory and falls
// back to the save directory.
func (m *model) importPath(name string) string {
	if _, err := os.Stat(name); err == nil {
		return name
	}
	return m.config.SavePath(name)
}

func (m *model) importFile(path string) (string, error) {
	f, ok := exchange.FormatFromPath(path)
	if !ok || !f.Importable() {
		return "", fmt.Errorf("cannot import %s: use .md, .mmd or .json", filepath.Base(path))
	}
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	doc, err := m.ed.Import(file, f)
	if len(doc.Cards) > 0 {
		m.ed.Canvas.CenterOnCards(doc.Cards)
	}
	var perr *exchange.ParseError
	if errors.As(err, &perr) {
		return "", fmt.Errorf("%w (see the error card)", err)
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("imported %d cards", len(doc.Cards)), nil
}

// exportVisualTXT writes the visible canvas as plain text, without
// selection or other overlays.
func (m *model) exportVisualTXT(filename string) error {
	width := m.width
	if width < 1 {
		width = 80
	}
	height := m.canvasHeight()
	if m.height < 2 {
		height = 24
	}

	rendered := renderCanvas(m.ed.State, m.ed.Canvas, width, height, renderOptions{}).lines(true)
	var b strings.Builder
	for _, line := range rendered {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return os.WriteFile(filename, []byte(b.String()), 0o644)
}
