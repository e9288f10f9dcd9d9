package listing

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/danieljhkim/treedit/internal/fsurl"
	"github.com/danieljhkim/treedit/internal/planner"
)

// Line is one entry line of a parsed section.
type Line struct {
	// Num is the 1-based line number in the document
	Num int

	// ID is the stable id, or 0 for a new line
	ID int

	Name string
	Type planner.EntryType
	Link string

	// Mode is set when HasMode is true
	Mode    os.FileMode
	HasMode bool
}

// Buffer is one parsed section.
type Buffer struct {
	URL   string
	Line  int
	Lines []Line
}

// Document is a parsed listing.
type Document struct {
	SnapshotID string
	Buffers    []*Buffer
}

// Buffer returns the section for url, or nil.
func (d *Document) Buffer(url string) *Buffer {
	for _, b := range d.Buffers {
		if b.URL == url {
			return b
		}
	}
	return nil
}

// Parse reads an edited listing. Structural problems are collected rather
// than stopping at the first one; the returned Errors is nil when the
// document is well formed.
func Parse(data []byte, opts Options) (*Document, Errors) {
	p := &parser{opts: opts, doc: &Document{}}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	num := 0
	for scanner.Scan() {
		num++
		p.line(num, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		p.fail("", num+1, fmt.Sprintf("failed to read listing: %v", err))
	}
	return p.doc, p.errs
}

type parser struct {
	opts    Options
	doc     *Document
	current *Buffer
	names   map[string]int
	errs    Errors
}

func (p *parser) fail(buffer string, num int, msg string) {
	p.errs = append(p.errs, &ParseError{Buffer: buffer, Line: num, Msg: msg})
}

func (p *parser) bufferURL() string {
	if p.current == nil {
		return ""
	}
	return p.current.URL
}

func (p *parser) line(num int, text string) {
	trimmed := strings.TrimSpace(text)
	switch {
	case trimmed == "":
		return

	case strings.HasPrefix(trimmed, snapshotDirective):
		if p.current != nil || p.doc.SnapshotID != "" {
			p.fail(p.bufferURL(), num, "snapshot directive must be the first line")
			return
		}
		p.doc.SnapshotID = strings.TrimSpace(strings.TrimPrefix(trimmed, snapshotDirective))

	case strings.HasPrefix(trimmed, headerPrefix):
		p.header(num, strings.TrimSpace(strings.TrimPrefix(trimmed, headerPrefix)))

	case p.current == nil:
		p.fail("", num, "entry outside of a section")

	case strings.HasPrefix(trimmed, "/"):
		p.idLine(num, trimmed)

	default:
		p.newLine(num, trimmed)
	}
}

func (p *parser) header(num int, url string) {
	scheme, path, err := fsurl.Parse(url)
	if err != nil {
		p.fail(url, num, err.Error())
		p.current = nil
		return
	}
	url = fsurl.New(scheme, path)
	if p.doc.Buffer(url) != nil {
		p.fail(url, num, "duplicate section")
		p.current = nil
		return
	}
	p.current = &Buffer{URL: url, Line: num}
	p.names = make(map[string]int)
	p.doc.Buffers = append(p.doc.Buffers, p.current)
}

func (p *parser) idLine(num int, text string) {
	idText, rest, _ := strings.Cut(text[1:], " ")
	id, err := strconv.Atoi(idText)
	if err != nil || id <= 0 {
		p.fail(p.current.URL, num, fmt.Sprintf("malformed id %q", "/"+idText))
		return
	}

	line := Line{Num: num, ID: id}
	rest = strings.TrimLeft(rest, " ")
	if p.opts.HasColumn(ColumnPermissions) {
		modeText, name, _ := strings.Cut(rest, " ")
		mode, err := ParseMode(modeText)
		if err != nil {
			p.fail(p.current.URL, num, fmt.Sprintf("bad permission string %q", modeText))
			return
		}
		line.Mode, line.HasMode = mode, true
		rest = strings.TrimLeft(name, " ")
	}

	if !p.fillName(&line, rest) {
		return
	}
	if strings.Contains(line.Name, "/") {
		p.fail(p.current.URL, num, fmt.Sprintf("name %q of an existing entry cannot contain '/'", line.Name))
		return
	}
	p.add(line)
}

func (p *parser) newLine(num int, text string) {
	line := Line{Num: num}
	if p.opts.HasColumn(ColumnPermissions) {
		// A copied line with its id removed still carries the column.
		if modeText, name, ok := strings.Cut(text, " "); ok && looksLikeMode(modeText) && strings.TrimSpace(name) != "" {
			text = strings.TrimLeft(name, " ")
		}
	}
	if !p.fillName(&line, text) {
		return
	}
	p.add(line)
}

// fillName parses the name part into line. It reports false after recording
// an error.
func (p *parser) fillName(line *Line, text string) bool {
	name, isDir, link := splitName(text)
	if strings.Trim(name, "/") == "" {
		p.fail(p.current.URL, line.Num, "empty name")
		return false
	}
	line.Name = name
	line.Link = link
	switch {
	case link != "":
		line.Type = planner.EntryLink
	case isDir:
		line.Type = planner.EntryDirectory
	default:
		line.Type = planner.EntryFile
	}
	return true
}

func (p *parser) add(line Line) {
	if prev, ok := p.names[line.Name]; ok {
		p.fail(p.current.URL, line.Num, fmt.Sprintf("duplicate name %q (first on line %d)", line.Name, prev))
		return
	}
	p.names[line.Name] = line.Num
	p.current.Lines = append(p.current.Lines, line)
}
