// Package preview renders line diffs of pending file changes for dry runs.
package preview

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// ContextLines is the number of unchanged lines kept around each change.
const ContextLines = 3

type op struct {
	kind byte // ' ', '+' or '-'
	text string
}

// Unified returns a unified-style diff of before and after labelled with
// path, or "" when they are equal.
func Unified(path, before, after string) string {
	if before == after {
		return ""
	}

	ops := lineDiff(before, after)
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n", path, path)
	for _, h := range hunks(ops, ContextLines) {
		writeHunk(&sb, ops, h)
	}
	return sb.String()
}

// lineDiff diffs before and after line by line. Each distinct line is
// encoded as one rune so the character diff works on whole lines.
func lineDiff(before, after string) []op {
	index := map[string]rune{}
	var lines []string
	encode := func(text string) []rune {
		var rs []rune
		for _, line := range strings.SplitAfter(text, "\n") {
			if line == "" {
				continue
			}
			r, ok := index[line]
			if !ok {
				r = lineRune(len(lines))
				index[line] = r
				lines = append(lines, line)
			}
			rs = append(rs, r)
		}
		return rs
	}
	a, b := encode(before), encode(after)

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	var ops []op
	for _, d := range dmp.DiffMainRunes(a, b, false) {
		kind := byte(' ')
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			kind = '+'
		case diffmatchpatch.DiffDelete:
			kind = '-'
		}
		for _, r := range d.Text {
			ops = append(ops, op{kind: kind, text: strings.TrimSuffix(lines[runeLine(r)], "\n")})
		}
	}
	return ops
}

// Line numbers skip the surrogate block, which does not survive a
// rune-to-string round trip.
const surrogateGap = 0xE000 - 0xD800

func lineRune(i int) rune {
	if i >= 0xD800 {
		i += surrogateGap
	}
	return rune(i)
}

func runeLine(r rune) int {
	if r >= 0xE000 {
		r -= surrogateGap
	}
	return int(r)
}

// hunk is a half-open range of ops.
type hunk struct{ start, end int }

func hunks(ops []op, context int) []hunk {
	var out []hunk
	for i, o := range ops {
		if o.kind == ' ' {
			continue
		}
		start := max(i-context, 0)
		end := min(i+context+1, len(ops))
		if n := len(out); n > 0 && start <= out[n-1].end {
			out[n-1].end = max(out[n-1].end, end)
			continue
		}
		out = append(out, hunk{start: start, end: end})
	}
	return out
}

func writeHunk(sb *strings.Builder, ops []op, h hunk) {
	oldStart, newStart := 1, 1
	for _, o := range ops[:h.start] {
		if o.kind != '+' {
			oldStart++
		}
		if o.kind != '-' {
			newStart++
		}
	}
	var oldCount, newCount int
	for _, o := range ops[h.start:h.end] {
		if o.kind != '+' {
			oldCount++
		}
		if o.kind != '-' {
			newCount++
		}
	}
	if oldCount == 0 {
		oldStart--
	}
	if newCount == 0 {
		newStart--
	}

	fmt.Fprintf(sb, "@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount)
	for _, o := range ops[h.start:h.end] {
		sb.WriteByte(o.kind)
		sb.WriteString(o.text)
		sb.WriteByte('\n')
	}
}
