// Package jsonio provides small helpers for persisting JSON documents and
// reading JSON Lines files. The generation job uses them for its seed
// task inputs and generated instruction outputs.
package jsonio

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Mode selects how Dump opens the destination file.
type Mode int

const (
	// Write truncates the destination before writing.
	Write Mode = iota

	// Append adds the document after any existing content.
	Append
)

// DefaultIndent is the indentation width used when Dump is given a
// non-positive indent.
const DefaultIndent = 4

// Dump serializes obj as indented JSON to path, creating parent
// directories as needed.
func Dump(obj any, path string, mode Mode, indent int) error {
	if indent <= 0 {
		indent = DefaultIndent
	}

	flags := os.O_WRONLY | os.O_CREATE
	switch mode {
	case Write:
		flags |= os.O_TRUNC
	case Append:
		flags |= os.O_APPEND
	default:
		return fmt.Errorf("jsonio: invalid mode %d", mode)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("jsonio: create directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("jsonio: open %s: %w", path, err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", strings.Repeat(" ", indent))

	if err := enc.Encode(obj); err != nil {
		_ = f.Close()
		return fmt.Errorf("jsonio: encode to %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("jsonio: close %s: %w", path, err)
	}

	return nil
}

// Load reads the JSON document at path into dest.
func Load(path string, dest any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("jsonio: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewDecoder(f).Decode(dest); err != nil {
		return fmt.Errorf("jsonio: decode %s: %w", path, err)
	}

	return nil
}

// LoadLines reads a JSON Lines file, invoking handle once per non-empty
// line with a copy of the raw document. Processing stops at the first
// handler error.
func LoadLines(path string, handle func(json.RawMessage) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("jsonio: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024) // allow long lines

	line := 0
	for sc.Scan() {
		line++

		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}

		if err := handle(append(json.RawMessage(nil), raw...)); err != nil {
			return fmt.Errorf("jsonio: %s line %d: %w", path, line, err)
		}
	}

	if err := sc.Err(); err != nil {
		return fmt.Errorf("jsonio: read %s: %w", path, err)
	}

	return nil
}
