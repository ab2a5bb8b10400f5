package translate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/shibukawa/snaptmpl/intermediate"
)

var forHeader = regexp.MustCompile(`^(` + identifier + `)\s+in\s+(.+)$`)

// translateDirective emits block statements and keeps the unit's indentation
// and block stack in step with them.
func translateDirective(tc *intermediate.TagContext, body string) (string, error) {
	state := tc.State()
	keyword, rest := splitKeyword(body)

	switch keyword {
	case "if":
		expr, err := translateExpression(tc, rest)
		if err != nil {
			return "", err
		}

		code := state.IndentString() + "if " + expr
		state.PushBlock(intermediate.Block{Keyword: "if", Pos: tc.Pos.String()})
		state.Indent()

		return code, nil

	case "elif", "else":
		top, ok := state.TopBlock()
		if !ok || top.Keyword != "if" {
			return "", fmt.Errorf("%w: '%s' outside of 'if'", intermediate.ErrUnexpectedDirective, keyword)
		}

		if top.HasElse {
			return "", fmt.Errorf("%w: '%s' after 'else'", intermediate.ErrUnexpectedDirective, keyword)
		}

		if err := state.Dedent(); err != nil {
			return "", err
		}

		code := state.IndentString() + "else"

		if keyword == "elif" {
			expr, err := translateExpression(tc, rest)
			if err != nil {
				return "", err
			}

			code = state.IndentString() + "elif " + expr
		} else {
			top.HasElse = true
		}

		state.Indent()

		return code, nil

	case "for":
		m := forHeader.FindStringSubmatch(rest)
		if m == nil {
			return "", fmt.Errorf("%w: expected 'for <name> in <expression>', got '%s'", intermediate.ErrUnexpectedDirective, body)
		}

		expr, err := translateExpression(tc, m[2])
		if err != nil {
			return "", err
		}

		state.DeclareLocal(m[1])

		code := state.IndentString() + "for " + m[1] + " in " + expr
		state.PushBlock(intermediate.Block{Keyword: "for", Pos: tc.Pos.String(), Locals: []string{m[1]}})
		state.Indent()

		return code, nil

	case "end":
		if _, err := state.PopBlock(); err != nil {
			return "", err
		}

		if err := state.Dedent(); err != nil {
			return "", err
		}

		return state.IndentString() + "end", nil
	}

	return "", fmt.Errorf("%w: '%s'", intermediate.ErrUnexpectedDirective, keyword)
}

func splitKeyword(body string) (string, string) {
	body = strings.TrimSpace(body)

	i := strings.IndexFunc(body, unicode.IsSpace)
	if i < 0 {
		return body, ""
	}

	return body[:i], strings.TrimSpace(body[i:])
}
