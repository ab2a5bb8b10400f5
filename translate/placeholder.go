package translate

import "github.com/shibukawa/snaptmpl/intermediate"

// translatePlaceholder turns the body of ${expr} or $name.path into a checked expression
func translatePlaceholder(tc *intermediate.TagContext, body string) (string, error) {
	return translateExpression(tc, body)
}
