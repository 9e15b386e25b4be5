package jsonapi

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a field path. Index is only meaningful when IsIndex is set.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// String returns the segment as it appears in a dotted path.
func (s Segment) String() string {
	if s.IsIndex {
		return strconv.Itoa(s.Index)
	}

	return s.Key
}

// ParsePath splits a dotted/bracketed path such as "a.b[0].c" into segments.
func ParsePath(path string) ([]Segment, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	var segments []Segment

	for _, part := range strings.Split(path, ".") {
		parsed, err := parsePart(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", err, path)
		}

		segments = append(segments, parsed...)
	}

	return segments, nil
}

func parsePart(part string) ([]Segment, error) {
	open := strings.IndexByte(part, '[')
	if open < 0 {
		if part == "" || strings.IndexByte(part, ']') >= 0 {
			return nil, ErrInvalidPath
		}

		return []Segment{{Key: part}}, nil
	}

	var segments []Segment

	if open > 0 {
		segments = append(segments, Segment{Key: part[:open]})
	}

	rest := part[open:]
	for rest != "" {
		if rest[0] != '[' {
			return nil, ErrInvalidPath
		}

		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, ErrInvalidPath
		}

		index, err := strconv.Atoi(rest[1:end])
		if err != nil || index < 0 {
			return nil, ErrInvalidPath
		}

		segments = append(segments, Segment{Index: index, IsIndex: true})
		rest = rest[end+1:]
	}

	if len(segments) == 0 {
		return nil, ErrInvalidPath
	}

	return segments, nil
}

// traverse walks value along segments. The boolean is false as soon as a
// segment cannot be resolved; a JSON null at the final segment is found.
func traverse(value any, segments []Segment) (any, bool) {
	current := value

	for _, segment := range segments {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment.String()]
			if !ok {
				return nil, false
			}

			current = next
		case []any:
			index := segment.Index
			if !segment.IsIndex {
				parsed, err := strconv.Atoi(segment.Key)
				if err != nil {
					return nil, false
				}

				index = parsed
			}

			if index < 0 || index >= len(node) {
				return nil, false
			}

			current = node[index]
		default:
			return nil, false
		}
	}

	return current, true
}
