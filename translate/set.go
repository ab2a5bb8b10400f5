package translate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shibukawa/snaptmpl/intermediate"
)

var setHeader = regexp.MustCompile(`^set\s+(` + identifier + `)\s*=(.*)$`)

// Cache types accepted by the cache directive
const (
	CacheStatic  = "static"
	CacheRefresh = "refresh"
	CacheNone    = "none"
)

// translateSet declares a local variable computed once per render, before any
// output. A name is set at most once and the expression may not use loop variables.
func translateSet(tc *intermediate.TagContext, body string) (string, error) {
	m := setHeader.FindStringSubmatch(strings.TrimSpace(body))
	if m == nil {
		return "", fmt.Errorf("%w: expected 'set <name> = <expression>', got '%s'", intermediate.ErrUnexpectedDirective, body)
	}

	name := m[1]
	state := tc.State()

	if state.IsLocal(name) {
		return "", fmt.Errorf("%w: '%s' is already declared", intermediate.ErrUnexpectedDirective, name)
	}

	expr, variables, err := translateExpressionVars(tc, m[2])
	if err != nil {
		return "", err
	}

	for _, v := range variables {
		if b, ok := state.BlockLocal(v); ok {
			return "", fmt.Errorf("%w: 'set %s' uses '%s' bound by '%s' at %s", intermediate.ErrUnexpectedDirective, name, v, b.Keyword, b.Pos)
		}
	}

	state.DeclareLocal(name)

	code := name + " = " + expr
	state.AddSetupChunk("set:"+name, code)

	return code, nil
}

// translateCache selects the default cache type of the unit
func translateCache(tc *intermediate.TagContext, body string) (string, error) {
	cacheType := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(body), "cache"))

	switch cacheType {
	case CacheStatic, CacheRefresh, CacheNone:
		tc.State().SetDefaultCacheType(cacheType)
		return "", nil
	}

	return "", fmt.Errorf("%w: unknown cache type '%s'", intermediate.ErrUnexpectedDirective, cacheType)
}
