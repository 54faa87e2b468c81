//go:build tools

package main

// Pins the stringer generator referenced by every //go:generate
// directive in vm/ (OpCode, TokenType, Prec) as a real module
// dependency instead of an implicit devtool.
import _ "golang.org/x/tools/cmd/stringer"
