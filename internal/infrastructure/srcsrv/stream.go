// Package srcsrv reads the source server stream of a PDB and downloads the
// source files it references.
package srcsrv

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"
)

const (
	sectionPrefix = "SRCSRV:"

	sectionIni       = "ini"
	sectionVariables = "variables"
	sectionFiles     = "source files"
	sectionEnd       = "end"
)

var ErrMalformedStream = errors.New("malformed srcsrv stream")

// Stream is a parsed srcsrv stream. Keys of Ini and Variables are upper
// case; lookups through Variable ignore case.
type Stream struct {
	Ini       map[string]string
	Variables map[string]string
	// Files holds one entry per source file, split on '*'. The first
	// field is the path the compiler saw.
	Files [][]string
}

// Variable returns the raw value of a variable
func (s *Stream) Variable(name string) (string, bool) {
	v, ok := s.Variables[strings.ToUpper(name)]
	return v, ok
}

// Parse decodes the text of a srcsrv stream
func Parse(data []byte) (*Stream, error) {
	s := &Stream{
		Ini:       make(map[string]string),
		Variables: make(map[string]string),
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	section := ""
	sawHeader := false
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\x00")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if strings.HasPrefix(line, sectionPrefix) {
			section = sectionName(line)
			sawHeader = true
			if section == sectionEnd {
				break
			}
			continue
		}

		switch section {
		case sectionIni:
			if key, value, ok := splitAssignment(line); ok {
				s.Ini[key] = value
			}
		case sectionVariables:
			if key, value, ok := splitAssignment(line); ok {
				s.Variables[key] = value
			}
		case sectionFiles:
			s.Files = append(s.Files, strings.Split(line, "*"))
		case "":
			return nil, fmt.Errorf("%w: content before the first section", ErrMalformedStream)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedStream, err)
	}
	if !sawHeader {
		return nil, fmt.Errorf("%w: no sections", ErrMalformedStream)
	}
	return s, nil
}

// sectionName turns "SRCSRV: source files -----" into "source files"
func sectionName(line string) string {
	name := strings.TrimPrefix(line, sectionPrefix)
	name = strings.TrimRight(name, "- ")
	return strings.ToLower(strings.TrimSpace(name))
}

func splitAssignment(line string) (string, string, bool) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", false
	}
	key = strings.ToUpper(strings.TrimSpace(key))
	if key == "" {
		return "", "", false
	}
	return key, strings.TrimSpace(value), true
}
