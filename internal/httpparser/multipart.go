package httpparser

import (
	"bytes"
	"strings"
)

// extractBoundary pulls the boundary parameter out of a multipart/form-data
// Content-Type value.
func extractBoundary(contentType string) (string, error) {
	_, params, _ := strings.Cut(contentType, ";")
	for _, param := range strings.Split(params, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "boundary") {
			continue
		}
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"`)
		if value == "" {
			return "", ErrMultipartNoBoundary
		}
		return value, nil
	}
	return "", ErrMultipartNoBoundary
}

// splitMultipart splits a multipart/form-data body on the given boundary
// into ordered parts, each with its own header block ending in CRLFCRLF
// (spec §4.2).
func splitMultipart(body []byte, boundary string) ([]Part, error) {
	delim := []byte("--" + boundary)
	var parts []Part

	segments := bytes.Split(body, delim)
	if len(segments) < 2 {
		return nil, ErrMultipartMalformed
	}
	// segments[0] is preamble before the first boundary; the last segment
	// after the closing "--boundary--" is the epilogue.
	for _, seg := range segments[1 : len(segments)-1] {
		seg = bytes.TrimPrefix(seg, []byte("\r\n"))
		seg = bytes.TrimSuffix(seg, []byte("\r\n"))
		if len(seg) == 0 {
			continue
		}

		headEnd := bytes.Index(seg, []byte("\r\n\r\n"))
		if headEnd < 0 {
			return nil, ErrMultipartMalformed
		}
		head := seg[:headEnd]
		data := seg[headEnd+4:]

		part := Part{Data: data}
		for _, line := range bytes.Split(head, []byte("\r\n")) {
			name, value, ok := bytesCut(line, ':')
			if !ok {
				continue
			}
			key := strings.TrimSpace(strings.ToLower(string(name)))
			val := strings.TrimSpace(string(value))
			switch key {
			case "content-disposition":
				part.Name = dispositionParam(val, "name")
				part.Filename = dispositionParam(val, "filename")
			case "content-type":
				part.ContentType = val
			}
		}
		parts = append(parts, part)
	}
	return parts, nil
}

func bytesCut(line []byte, sep byte) ([]byte, []byte, bool) {
	idx := bytes.IndexByte(line, sep)
	if idx < 0 {
		return line, nil, false
	}
	return line[:idx], line[idx+1:], true
}

// dispositionParam extracts a quoted key="value" parameter from a
// Content-Disposition value, e.g. `form-data; name="file"; filename="a.txt"`.
func dispositionParam(disposition, key string) string {
	for _, field := range strings.Split(disposition, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(field), "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), key) {
			continue
		}
		return strings.Trim(strings.TrimSpace(value), `"`)
	}
	return ""
}
