package pbs

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Block is one attribute block from bulk scheduler output: a header line
// (node name or job identifier) followed by indented "key = value" lines.
type Block struct {
	Header string
	Attrs  map[string]string
}

// lastKey tracking lets indented continuation lines (qstat wraps long
// values) append to the value they belong to.
type blockReader struct {
	source  string
	blocks  []Block
	current *Block
	lastKey string
}

func (r *blockReader) startBlock(header string) {
	r.flush()
	r.current = &Block{Header: header, Attrs: make(map[string]string)}
	r.lastKey = ""
}

func (r *blockReader) flush() {
	if r.current != nil {
		r.blocks = append(r.blocks, *r.current)
		r.current = nil
	}
}

// ParseBlocks reads attribute-block output (pbsnodes -a, qstat -f) into
// structured blocks. The expected shape is strict: a non-indented header
// line opens a block, indented "key = value" lines fill it, a blank line
// closes it. Indented lines without "=" continue the previous value.
// Anything else is a *ParseError.
func ParseBlocks(r io.Reader, source string, headerPrefix string) ([]Block, error) {
	br := &blockReader{source: source}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if strings.TrimSpace(line) == "" {
			br.flush()
			continue
		}

		indented := line[0] == ' ' || line[0] == '\t'
		if !indented {
			header := strings.TrimSpace(line)
			if headerPrefix != "" {
				if !strings.HasPrefix(header, headerPrefix) {
					return nil, NewParseError(source, lineNum, line,
						fmt.Sprintf("expected header starting with %q", headerPrefix))
				}
				header = strings.TrimSpace(strings.TrimPrefix(header, headerPrefix))
			}
			br.startBlock(header)
			continue
		}

		if br.current == nil {
			return nil, NewParseError(source, lineNum, line, "attribute line before any header")
		}

		trimmed := strings.TrimSpace(line)
		if idx := strings.Index(trimmed, " = "); idx >= 0 {
			key := strings.TrimSpace(trimmed[:idx])
			value := strings.TrimSpace(trimmed[idx+3:])
			br.current.Attrs[key] = value
			br.lastKey = key
			continue
		}

		// Wrapped continuation of the previous value
		if br.lastKey == "" {
			return nil, NewParseError(source, lineNum, line, "continuation line with no preceding attribute")
		}
		br.current.Attrs[br.lastKey] += trimmed
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s output: %w", source, err)
	}

	br.flush()
	return br.blocks, nil
}

// NormalizeMemoryKB converts a scheduler memory token to kilobytes.
// Accepted units: b, kb, mb, gb, tb. An unrecognized unit is a fatal
// parse error, never silently zero.
func NormalizeMemoryKB(token string) (int64, error) {
	s := strings.ToLower(strings.TrimSpace(token))
	if s == "" {
		return 0, NewParseError("memory", 0, token, "empty memory value")
	}

	numEnd := 0
	for numEnd < len(s) && (s[numEnd] >= '0' && s[numEnd] <= '9') {
		numEnd++
	}
	if numEnd == 0 {
		return 0, NewParseError("memory", 0, token, "no numeric prefix")
	}

	value, err := strconv.ParseInt(s[:numEnd], 10, 64)
	if err != nil {
		return 0, NewParseError("memory", 0, token, err.Error())
	}

	switch s[numEnd:] {
	case "b":
		return value / 1024, nil
	case "kb", "":
		return value, nil
	case "mb":
		return value * 1024, nil
	case "gb":
		return value * 1024 * 1024, nil
	case "tb":
		return value * 1024 * 1024 * 1024, nil
	default:
		return 0, NewParseError("memory", 0, token, fmt.Sprintf("unrecognized unit %q", s[numEnd:]))
	}
}

// intAttr parses an integer attribute, returning 0 when absent.
func intAttr(attrs map[string]string, key string) int {
	v, ok := attrs[key]
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
