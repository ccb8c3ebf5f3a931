// Package domain defines the core types shared across the Pulsar compiler
// and runtime: sensor catalogs, rule intermediate representation,
// conditions/actions, manifest records, configuration, and the interfaces
// the compiler and runtime consume but do not implement.
package domain

import "fmt"

// SourceLocation pins a piece of compiled state back to the DSL document it
// came from. Column is optional; zero means "not tracked at this granularity".
type SourceLocation struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Column  int    `json:"column,omitempty"`
	RawText string `json:"rawText,omitempty"`
}

func (s SourceLocation) String() string {
	if s.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
	}
	return fmt.Sprintf("%s:%d", s.File, s.Line)
}
