// Package jsonl reads JSON Lines files for the file validators.
//
// The validators share a collect-all policy: a bad line becomes a Problem
// and scanning continues. Only I/O failures abort a scan.
package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// MaxLineSize bounds a single line. Eval cases embed prompts and generated
// outputs, so the bufio default of 64 KiB is too small.
const MaxLineSize = 16 << 20

// Line is one non-blank line of input.
type Line struct {
	// Number is 1-based and counts blank lines.
	Number int

	// Text is the line with surrounding whitespace removed.
	Text []byte
}

// Scan calls fn for every non-blank line of r, in order.
//
// Returning an error from fn stops the scan and Scan returns that error.
func Scan(r io.Reader, fn func(Line) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), MaxLineSize)

	n := 0
	for sc.Scan() {
		n++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		// Scanner reuses its buffer between calls.
		if err := fn(Line{Number: n, Text: bytes.Clone(text)}); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read line %d: %w", n+1, err)
	}
	return nil
}

// ScanFile opens path and scans it with Scan.
func ScanFile(path string, fn func(Line) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if err := Scan(f, fn); err != nil {
		return fmt.Errorf("scan %s: %w", path, err)
	}
	return nil
}

// Object is a decoded JSON object whose member values are left undecoded.
type Object map[string]json.RawMessage

// Has reports whether key is present, even with a null value.
func (o Object) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// GetString returns the member as a string. ok is false if the member is absent
// or not a JSON string.
func (o Object) GetString(key string) (s string, ok bool) {
	raw, present := o[key]
	if !present {
		return "", false
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Key returns a comparable identity for the member: the decoded value for
// strings, the compact JSON text otherwise. ok is false if absent.
func (o Object) Key(key string) (k string, ok bool) {
	if s, isString := o.GetString(key); isString {
		return s, true
	}
	raw, present := o[key]
	if !present {
		return "", false
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw), true
	}
	return buf.String(), true
}

// DecodeObject parses text as a single JSON object.
//
// Anything else, including valid JSON that is not an object, yields a
// *MalformedInputError.
func DecodeObject(source string, line int, text []byte) (Object, error) {
	trimmed := bytes.TrimSpace(text)
	if len(trimmed) > 0 && trimmed[0] != '{' && json.Valid(trimmed) {
		return nil, &MalformedInputError{Source: source, Line: line, Err: errNotObject}
	}
	var obj Object
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, &MalformedInputError{Source: source, Line: line, Err: err}
	}
	return obj, nil
}
