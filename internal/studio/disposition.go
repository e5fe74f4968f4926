package studio

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrNoDisposition   = errors.New("content-disposition header missing")
	ErrNoFilename      = errors.New("content-disposition has no filename parameter")
	ErrInvalidFilename = errors.New("content-disposition filename is invalid")
)

type dispositionParam struct {
	name  string
	value string
}

// ParseFilename extracts the filename from a Content-Disposition header value
// such as:
//
//	attachment; filename*=utf-8''model.zip
//
// The extended filename* parameter wins over filename. The result is
// NFC-normalized and reduced to a base name.
func ParseFilename(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrNoDisposition
	}

	var plain, extended string
	var havePlain, haveExtended bool
	for _, param := range splitParams(header) {
		switch param.name {
		case "filename*":
			if !haveExtended {
				extended, haveExtended = param.value, true
			}
		case "filename":
			if !havePlain {
				plain, havePlain = param.value, true
			}
		}
	}

	var (
		name string
		err  error
	)
	switch {
	case haveExtended:
		name, err = decodeExtValue(unquote(extended))
	case havePlain:
		name = unquote(plain)
	default:
		return "", ErrNoFilename
	}
	if err != nil {
		return "", err
	}
	return sanitizeFilename(name)
}

// splitParams walks the header once, splitting on semicolons outside quoted
// strings. The leading disposition type has no '=' and is skipped.
func splitParams(header string) []dispositionParam {
	var (
		params   []dispositionParam
		current  strings.Builder
		inQuotes bool
		escaped  bool
	)
	flush := func() {
		segment := strings.TrimSpace(current.String())
		current.Reset()
		name, value, ok := strings.Cut(segment, "=")
		if !ok {
			return
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			return
		}
		params = append(params, dispositionParam{name: name, value: strings.TrimSpace(value)})
	}
	for _, r := range header {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && inQuotes:
			escaped = true
		case r == '"':
			inQuotes = !inQuotes
		case r == ';' && !inQuotes:
			flush()
			continue
		}
		current.WriteRune(r)
	}
	flush()
	return params
}

func unquote(value string) string {
	if len(value) < 2 || value[0] != '"' || value[len(value)-1] != '"' {
		return value
	}
	inner := value[1 : len(value)-1]
	var b strings.Builder
	b.Grow(len(inner))
	escaped := false
	for _, r := range inner {
		if !escaped && r == '\\' {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}

// decodeExtValue decodes an RFC 5987 value (charset'language'pct-encoded). A
// value without the two quote separators is taken as-is.
func decodeExtValue(value string) (string, error) {
	charset, rest, ok := strings.Cut(value, "'")
	if !ok {
		return value, nil
	}
	_, encoded, ok := strings.Cut(rest, "'")
	if !ok {
		return "", fmt.Errorf("%w: malformed extended value %q", ErrInvalidFilename, value)
	}
	raw, err := url.PathUnescape(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidFilename, err)
	}
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "utf-8", "":
		if !utf8.ValidString(raw) {
			return "", fmt.Errorf("%w: invalid utf-8", ErrInvalidFilename)
		}
		return raw, nil
	case "iso-8859-1", "latin1":
		decoded, err := charmap.ISO8859_1.NewDecoder().String(raw)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidFilename, err)
		}
		return decoded, nil
	default:
		return "", fmt.Errorf("%w: unsupported charset %q", ErrInvalidFilename, charset)
	}
}

func sanitizeFilename(name string) (string, error) {
	name = norm.NFC.String(strings.TrimSpace(name))
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	switch name {
	case "", ".", "..", "/":
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	if strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: contains NUL", ErrInvalidFilename)
	}
	return name, nil
}
