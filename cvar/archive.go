package cvar

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrSyntax is returned for a malformed archive line.
var ErrSyntax = errors.New("cvar: archive syntax error")

const archiveHeader = "// generated by cvar, edits to archived variables are picked up on reload\n"

// WriteArchive writes every Archive variable as a `set name "value"` line,
// sorted by name.
func (r *Registry) WriteArchive(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(archiveHeader); err != nil {
		return err
	}
	for _, v := range r.All() {
		if !v.flags.Has(Archive) {
			continue
		}
		if _, err := fmt.Fprintf(bw, "set %s %s\n", v.name, strconv.Quote(v.String())); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// LoadArchive applies `set name "value"` lines read from rd. Blank lines
// and lines starting with "//" are ignored. Unknown or read-only variables
// are skipped with a warning so archives written by other builds still load.
// The first malformed line aborts the load with ErrSyntax; lines before it
// stay applied.
func (r *Registry) LoadArchive(rd io.Reader) error {
	sc := bufio.NewScanner(rd)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "//") {
			continue
		}
		name, value, err := parseSet(text)
		if err != nil {
			return fmt.Errorf("%w: line %d: %w", ErrSyntax, line, err)
		}
		if err := r.Set(name, value); err != nil {
			slogger().Warn("cvar: archive entry skipped", "line", line, "name", name, "err", err)
		}
	}
	return sc.Err()
}

// parseSet splits `set name "value"`. An unquoted single-word value is
// accepted too.
func parseSet(text string) (name, value string, err error) {
	rest, ok := strings.CutPrefix(text, "set")
	if !ok || (rest != "" && rest[0] != ' ' && rest[0] != '\t') {
		return "", "", fmt.Errorf("expected set, got %q", text)
	}
	rest = strings.TrimSpace(rest)
	name, rest, ok = strings.Cut(rest, " ")
	if !ok || name == "" {
		return "", "", fmt.Errorf("missing value in %q", text)
	}
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, `"`) {
		value, err = strconv.Unquote(rest)
		if err != nil {
			return "", "", fmt.Errorf("bad quoted value %s: %w", rest, err)
		}
		return name, value, nil
	}
	if rest == "" || strings.ContainsAny(rest, " \t") {
		return "", "", fmt.Errorf("bad value in %q", text)
	}
	return name, rest, nil
}

// SaveFile writes the archive to path atomically through a temporary file
// in the same directory.
func (r *Registry) SaveFile(path string) error {
	var buf bytes.Buffer
	if err := r.WriteArchive(&buf); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("cvar: save %s: %w", path, err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("cvar: save %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cvar: save %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cvar: save %s: %w", path, err)
	}
	return nil
}

// LoadFile applies the archive at path.
func (r *Registry) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cvar: load %s: %w", path, err)
	}
	defer f.Close()
	if err := r.LoadArchive(f); err != nil {
		return fmt.Errorf("cvar: load %s: %w", path, err)
	}
	slogger().Info("cvar: archive loaded", "path", path)
	return nil
}
