package typescript

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/iancoleman/strcase"
)

// reservedWords are TypeScript keywords that cannot name a type or binding.
var reservedWords = func() map[string]bool {
	m := make(map[string]bool)
	for _, w := range strings.Fields(`
		break case catch class const continue debugger default delete do
		else enum export extends false finally for function if implements
		import in instanceof interface let new null package private
		protected public return static super switch this throw true try
		type typeof var void while with yield`) {
		m[w] = true
	}
	return m
}()

// escapeReservedWord escapes a reserved word by appending an underscore.
func escapeReservedWord(name string) string {
	if reservedWords[name] {
		return name + "_"
	}
	return name
}

func isIdentifier(name string) bool {
	if name == "" || unicode.IsDigit(rune(name[0])) {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '$' {
			return false
		}
	}
	return true
}

// needsQuoting returns true if a property name must be written as a string literal.
func needsQuoting(name string) bool {
	return !isIdentifier(name) || reservedWords[name]
}

// propertyName renders an object key or class member name.
func propertyName(name string) string {
	if needsQuoting(name) {
		return strconv.Quote(name)
	}
	return name
}

// sanitizeIdentifier makes name usable as a TypeScript binding.
func sanitizeIdentifier(name string) string {
	if name == "" {
		return "_"
	}

	var result strings.Builder
	if unicode.IsDigit(rune(name[0])) {
		result.WriteRune('_')
	}
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$' {
			result.WriteRune(r)
		} else {
			result.WriteRune('_')
		}
	}
	return escapeReservedWord(result.String())
}

// argName returns the binding name of a wrapper argument.
func argName(name string) string {
	return sanitizeIdentifier(strcase.ToLowerCamel(name))
}
