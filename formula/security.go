package formula

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxLength is the longest formula accepted, in characters.
const MaxLength = 1000

// Issue codes reported by ValidateFormula.
const (
	IssueEmpty            = "empty"
	IssueTooLong          = "too_long"
	IssueForbiddenToken   = "forbidden_token"
	IssueUnbalancedParens = "unbalanced_parentheses"
	IssueInvalidCharacter = "invalid_character"
	IssueUnknownFunction  = "unknown_function"
	IssueArity            = "wrong_argument_count"
	IssueSyntax           = "syntax_error"
)

// Issue is one problem found in a formula. Position is a 0-based byte
// offset, or -1 when the problem is not tied to a location.
type Issue struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Position int    `json:"position"`
}

func (i Issue) String() string {
	if i.Position < 0 {
		return i.Message
	}
	return fmt.Sprintf("%s (at %d)", i.Message, i.Position)
}

// =============================================================================
// DENY LIST - checked on the raw text before lexing
// =============================================================================

// forbiddenWords covers code execution, filesystem and process access,
// network access and runtime introspection.
var forbiddenWords = []string{
	"eval", "exec", "system", "shell_exec", "passthru", "popen", "proc_open",
	"pcntl_exec", "assert", "create_function", "call_user_func",
	"call_user_func_array", "preg_replace", "include", "include_once",
	"require", "require_once", "import", "fopen", "fwrite", "fread",
	"file", "file_get_contents", "file_put_contents", "readfile", "unlink",
	"rmdir", "mkdir", "chmod", "glob", "curl", "curl_exec", "fsockopen",
	"socket", "base64_decode", "phpinfo", "getenv", "putenv", "globals",
	"_get", "_post", "_server", "_env", "_cookie", "_request", "_files",
	"_session", "reflection", "reflectionclass", "reflectionfunction",
}

var forbiddenPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(forbiddenWords, "|") + `)\b`)

// forbiddenSequences are rejected wherever they appear.
var forbiddenSequences = []string{"$", "`", "__", "::", "->", "=>", "\\"}

func isAllowedChar(r rune) bool {
	switch {
	case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	}
	switch r {
	case '_', '.', ',', ':', '%', '+', '-', '*', '/', '(', ')', ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

// screen runs every text-level check and returns all issues found.
func screen(formula string) []Issue {
	var issues []Issue

	if strings.TrimSpace(formula) == "" {
		return []Issue{{Code: IssueEmpty, Message: "formula is empty", Position: -1}}
	}
	if n := utf8.RuneCountInString(formula); n > MaxLength {
		issues = append(issues, Issue{
			Code:     IssueTooLong,
			Message:  fmt.Sprintf("formula is %d characters, maximum is %d", n, MaxLength),
			Position: -1,
		})
	}

	for _, seq := range forbiddenSequences {
		if i := strings.Index(formula, seq); i >= 0 {
			issues = append(issues, Issue{
				Code:     IssueForbiddenToken,
				Message:  fmt.Sprintf("forbidden sequence %q", seq),
				Position: i,
			})
		}
	}
	for _, loc := range forbiddenPattern.FindAllStringIndex(formula, -1) {
		issues = append(issues, Issue{
			Code:     IssueForbiddenToken,
			Message:  fmt.Sprintf("forbidden token %q", formula[loc[0]:loc[1]]),
			Position: loc[0],
		})
	}

	for i, r := range formula {
		if !isAllowedChar(r) {
			issues = append(issues, Issue{
				Code:     IssueInvalidCharacter,
				Message:  fmt.Sprintf("character %q is not allowed", r),
				Position: i,
			})
		}
	}

	depth := 0
	for i, r := range formula {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				issues = append(issues, Issue{
					Code:     IssueUnbalancedParens,
					Message:  "closing parenthesis without opening",
					Position: i,
				})
				depth = 0
			}
		}
	}
	if depth > 0 {
		issues = append(issues, Issue{
			Code:     IssueUnbalancedParens,
			Message:  fmt.Sprintf("%d unclosed parenthesis", depth),
			Position: -1,
		})
	}

	return issues
}
