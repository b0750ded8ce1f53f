package manifest

import (
	"sort"
	"strconv"
	"strings"
)

type stmtKind int

const (
	stmtOther stmtKind = iota
	stmtHeader
	stmtKey
)

// stmt is one logical TOML statement spanning lines [start, end).
type stmt struct {
	kind       stmtKind
	key        string
	start, end int
}

// document is a line-oriented view of a TOML file. Edits touch only the
// statements they target; everything else, comments included, is kept.
// A file that uses CRLF is written back with CRLF.
type document struct {
	lines []string
	eol   string
}

func parseDocument(data []byte) *document {
	text := string(data)
	eol := "\n"
	if strings.Contains(text, "\r\n") {
		eol = "\r\n"
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return &document{eol: eol}
	}
	return &document{lines: strings.Split(text, "\n"), eol: eol}
}

func (d *document) bytes() []byte {
	lines := d.lines
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	eol := d.eol
	if eol == "" {
		eol = "\n"
	}
	return []byte(strings.Join(lines, eol) + eol)
}

type lexState struct {
	depth int
	inML  string // `"""` or `'''` while inside a multi-line string
}

// feed advances the lexer over one line and returns the offset of a
// comment that ends it, or -1.
func (s *lexState) feed(line string) int {
	for i := 0; i < len(line); i++ {
		if s.inML != "" {
			if strings.HasPrefix(line[i:], s.inML) {
				i += len(s.inML) - 1
				s.inML = ""
			}
			continue
		}
		switch c := line[i]; c {
		case '#':
			return i
		case '"', '\'':
			delim := line[i : i+1]
			if strings.HasPrefix(line[i:], strings.Repeat(delim, 3)) {
				s.inML = strings.Repeat(delim, 3)
				i += 2
				continue
			}
			for i++; i < len(line); i++ {
				if c == '"' && line[i] == '\\' {
					i++
					continue
				}
				if line[i] == c {
					break
				}
			}
		case '[', '{':
			s.depth++
		case ']', '}':
			s.depth--
		}
	}
	return -1
}

func (s *lexState) open() bool { return s.depth > 0 || s.inML != "" }

func (d *document) scan() []stmt {
	var out []stmt
	for i := 0; i < len(d.lines); {
		trimmed := strings.TrimSpace(d.lines[i])
		switch {
		case trimmed == "" || strings.HasPrefix(trimmed, "#"):
			out = append(out, stmt{kind: stmtOther, start: i, end: i + 1})
			i++
		case strings.HasPrefix(trimmed, "["):
			out = append(out, stmt{kind: stmtHeader, key: headerName(trimmed), start: i, end: i + 1})
			i++
		default:
			key, _, _ := strings.Cut(trimmed, "=")
			st := stmt{kind: stmtKey, key: unquoteKey(strings.TrimSpace(key)), start: i}
			var lex lexState
			_, value, _ := strings.Cut(d.lines[i], "=")
			lex.feed(value)
			i++
			for lex.open() && i < len(d.lines) {
				lex.feed(d.lines[i])
				i++
			}
			st.end = i
			out = append(out, st)
		}
	}
	return out
}

func headerName(trimmed string) string {
	if idx := strings.LastIndex(trimmed, "]"); idx >= 0 {
		trimmed = trimmed[:idx+1]
	}
	trimmed = strings.TrimPrefix(strings.TrimPrefix(trimmed, "["), "[")
	trimmed = strings.TrimSuffix(strings.TrimSuffix(trimmed, "]"), "]")
	return unquoteKey(strings.TrimSpace(trimmed))
}

func unquoteKey(k string) string {
	if len(k) >= 2 && (k[0] == '"' && k[len(k)-1] == '"' || k[0] == '\'' && k[len(k)-1] == '\'') {
		return k[1 : len(k)-1]
	}
	return k
}

// topLevelKeys lists root keys followed by table names in file order.
func (d *document) topLevelKeys() []string {
	var keys []string
	seen := map[string]bool{}
	inRoot := true
	for _, st := range d.scan() {
		switch st.kind {
		case stmtHeader:
			inRoot = false
			name, _, _ := strings.Cut(st.key, ".")
			if !seen[name] {
				seen[name] = true
				keys = append(keys, name)
			}
		case stmtKey:
			if inRoot && !seen[st.key] {
				seen[st.key] = true
				keys = append(keys, st.key)
			}
		}
	}
	return keys
}

func (d *document) splice(start, end int, repl []string) {
	out := make([]string, 0, len(d.lines)-(end-start)+len(repl))
	out = append(out, d.lines[:start]...)
	out = append(out, repl...)
	out = append(out, d.lines[end:]...)
	d.lines = out
}

// trailingComment returns the comment ending a one-line key statement,
// with the blanks before it, or "".
func trailingComment(line string) string {
	_, value, ok := strings.Cut(line, "=")
	if !ok {
		return ""
	}
	var lex lexState
	i := lex.feed(value)
	if i < 0 {
		return ""
	}
	start := len(line) - len(value) + i
	for start > 0 && (line[start-1] == ' ' || line[start-1] == '\t') {
		start--
	}
	return line[start:]
}

// replaceKey renders key = value in place of st, keeping its indent and,
// for a one-line statement, its trailing comment.
func (d *document) replaceKey(st stmt, key, value string) []string {
	line := indentOf(d.lines[st.start]) + formatKey(key) + " = " + value
	if st.end-st.start == 1 {
		line += trailingComment(d.lines[st.start])
	}
	return []string{line}
}

func indentOf(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

// setRoot replaces or inserts a root-level key.
func (d *document) setRoot(key, value string) {
	lastKey := -1
	for _, st := range d.scan() {
		if st.kind == stmtHeader {
			break
		}
		if st.kind != stmtKey {
			continue
		}
		if st.key == key {
			d.splice(st.start, st.end, d.replaceKey(st, key, value))
			return
		}
		lastKey = st.end
	}
	at := 0
	if lastKey >= 0 {
		at = lastKey
	}
	d.splice(at, at, []string{formatKey(key) + " = " + value})
}

func (d *document) deleteRoot(key string) {
	for _, st := range d.scan() {
		if st.kind == stmtHeader {
			return
		}
		if st.kind == stmtKey && st.key == key {
			d.splice(st.start, st.end, nil)
			return
		}
	}
}

// setTable makes the string table name hold exactly entries. Existing keys
// keep their position, removed keys disappear and new keys are appended in
// sorted order. An empty map removes the table.
func (d *document) setTable(name string, entries map[string]string) {
	stmts := d.scan()
	header := -1
	for i, st := range stmts {
		if st.kind == stmtHeader && st.key == name {
			header = i
			break
		}
	}

	if header < 0 {
		if len(entries) == 0 {
			return
		}
		block := []string{}
		if len(d.lines) > 0 && strings.TrimSpace(d.lines[len(d.lines)-1]) != "" {
			block = append(block, "")
		}
		block = append(block, "["+formatKey(name)+"]")
		block = append(block, renderEntries(entries, sortedKeys(entries))...)
		d.lines = append(d.lines, block...)
		return
	}

	end := len(d.lines)
	for _, st := range stmts[header+1:] {
		if st.kind == stmtHeader {
			end = st.start
			break
		}
	}

	if len(entries) == 0 {
		d.splice(stmts[header].start, end, nil)
		return
	}

	var body []string
	seen := map[string]bool{}
	insertAt := 0
	for _, st := range stmts[header+1:] {
		if st.start >= end {
			break
		}
		if st.kind != stmtKey {
			body = append(body, d.lines[st.start:st.end]...)
			continue
		}
		v, ok := entries[st.key]
		if !ok {
			continue
		}
		seen[st.key] = true
		body = append(body, d.replaceKey(st, st.key, quote(v))...)
		insertAt = len(body)
	}
	var added []string
	for _, k := range sortedKeys(entries) {
		if !seen[k] {
			added = append(added, k)
		}
	}
	if len(added) > 0 {
		tail := append([]string{}, body[insertAt:]...)
		body = append(append(body[:insertAt], renderEntries(entries, added)...), tail...)
	}
	d.splice(stmts[header].end, end, body)
}

func renderEntries(entries map[string]string, keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, formatKey(k)+" = "+quote(entries[k]))
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isBareKey(k string) bool {
	if k == "" {
		return false
	}
	for _, r := range k {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-') {
			return false
		}
	}
	return true
}

func formatKey(k string) string {
	if isBareKey(k) {
		return k
	}
	return quote(k)
}

// quote renders s as a TOML basic string.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if r < 0x20 || r == 0x7f {
				b.WriteString(`\u` + leftPad(strconv.FormatInt(int64(r), 16), 4))
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func leftPad(s string, n int) string {
	for len(s) < n {
		s = "0" + s
	}
	return s
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = quote(it)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
