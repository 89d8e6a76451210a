package span

import (
	"fmt"
	"strings"
)

// Pos is a line/column position in an Act source file. Lines and columns
// are 1-based.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Error is a user-facing diagnostic anchored to a source position.
type Error struct {
	Pos Pos
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// ErrorList accumulates diagnostics across a pass. Phases keep collecting
// instead of aborting on the first problem so unrelated errors surface
// together.
type ErrorList struct {
	errs []*Error
}

func (l *ErrorList) Add(pos Pos, msg string) {
	l.errs = append(l.errs, &Error{Pos: pos, Msg: msg})
}

func (l *ErrorList) Addf(pos Pos, format string, args ...interface{}) {
	l.Add(pos, fmt.Sprintf(format, args...))
}

// Merge appends all diagnostics from other.
func (l *ErrorList) Merge(other *ErrorList) {
	l.errs = append(l.errs, other.errs...)
}

func (l *ErrorList) Empty() bool {
	return len(l.errs) == 0
}

func (l *ErrorList) Errors() []*Error {
	return l.errs
}

func (l *ErrorList) Error() string {
	var sb strings.Builder
	for i, e := range l.errs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(e.Error())
	}
	return sb.String()
}

// Err returns the list as an error, or nil if no diagnostics were added.
func (l *ErrorList) Err() error {
	if l.Empty() {
		return nil
	}
	return l
}
