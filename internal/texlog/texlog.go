// Package texlog extracts the useful part of a TeX compiler log.
//
// A batchmode log is mostly package loading noise. Errors start with a line
// beginning with "!" and end with the "l.<n>" context line showing where
// TeX stopped reading.
package texlog

import (
	"bufio"
	"bytes"
	"regexp"
	"strconv"
	"strings"
)

// DefaultExcerptLines is the excerpt size used by the CLI.
const DefaultExcerptLines = 12

var lineRef = regexp.MustCompile(`^l\.(\d+)`)

// Diagnostic is the first error found in a log.
type Diagnostic struct {
	Message string // text after "! "
	Line    int    // source line from the l.<n> marker, 0 when absent
}

// FirstError returns the first "!" error in log and the line it refers to.
func FirstError(log []byte) (Diagnostic, bool) {
	lines := splitLines(log)
	start := indexOfError(lines)
	if start < 0 {
		return Diagnostic{}, false
	}

	d := Diagnostic{Message: strings.TrimSpace(strings.TrimPrefix(lines[start], "!"))}
	for _, l := range lines[start+1:] {
		if m := lineRef.FindStringSubmatch(l); m != nil {
			d.Line, _ = strconv.Atoi(m[1])
			break
		}
		if strings.HasPrefix(l, "!") {
			break
		}
	}
	return d, true
}

// Excerpt returns at most maxLines lines describing why the build failed:
// the first error block when there is one, otherwise the last non-empty
// lines of the log.
func Excerpt(log []byte, maxLines int) string {
	if maxLines <= 0 {
		maxLines = DefaultExcerptLines
	}
	lines := splitLines(log)

	if start := indexOfError(lines); start >= 0 {
		end := start + 1
		for end < len(lines) && end-start < maxLines {
			end++
			if lineRef.MatchString(lines[end-1]) {
				// l.<n> is followed by the rest of the offending line.
				if end < len(lines) && end-start < maxLines {
					end++
				}
				break
			}
		}
		return strings.Join(lines[start:end], "\n")
	}

	var tail []string
	for i := len(lines) - 1; i >= 0 && len(tail) < maxLines; i-- {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		tail = append(tail, lines[i])
	}
	for i, j := 0, len(tail)-1; i < j; i, j = i+1, j-1 {
		tail[i], tail[j] = tail[j], tail[i]
	}
	return strings.Join(tail, "\n")
}

func indexOfError(lines []string) int {
	for i, l := range lines {
		if strings.HasPrefix(l, "!") {
			return i
		}
	}
	return -1
}

func splitLines(log []byte) []string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(log))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	return lines
}
