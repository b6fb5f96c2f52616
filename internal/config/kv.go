package config

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// KVParser implements koanf.Parser for the plain `key=value` text
// format: one assignment per line, `#`-prefixed
// comment lines and blank lines skipped, and boolean/integer/float
// coercion with `true/false/yes/no` recognised for booleans. `1` and
// `0` are stored as integers; Manager.Bool reads them as booleans.
//
// This is the one hand-written piece of the config stack: koanf ships
// no parser for this literal grammar, so it is implemented here and
// plugged into the same loading pipeline.
type KVParser struct{}

// NewKVParser returns a koanf.Parser for the key=value grammar.
func NewKVParser() *KVParser { return &KVParser{} }

// Unmarshal parses key=value text into a flat map. Values are coerced
// to bool, int64, or float64 where they unambiguously parse as such;
// everything else is kept as a string.
func (KVParser) Unmarshal(b []byte) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	scanner := bufio.NewScanner(bytes.NewReader(b))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			return nil, fmt.Errorf("config line %d: missing '=': %q", lineNo, line)
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		if key == "" {
			return nil, fmt.Errorf("config line %d: empty key", lineNo)
		}
		out[key] = coerce(val)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan config: %w", err)
	}
	return out, nil
}

// Marshal renders a flat map back to key=value text, sorted by key for
// deterministic output (used when persisting defaults or a snapshot).
func (KVParser) Marshal(m map[string]interface{}) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, k := range keys {
		fmt.Fprintf(&buf, "%s=%v\n", k, m[k])
	}
	return buf.Bytes(), nil
}

func coerce(val string) interface{} {
	switch strings.ToLower(val) {
	case "true", "yes":
		return true
	case "false", "no":
		return false
	}
	if i, err := strconv.ParseInt(val, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(val, 64); err == nil {
		return f
	}
	return val
}
