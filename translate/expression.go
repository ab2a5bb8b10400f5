package translate

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"

	"github.com/shibukawa/snaptmpl/intermediate"
)

// ErrInvalidExpression is returned when a tag expression is not valid CEL
var ErrInvalidExpression = errors.New("invalid expression")

// parseEnv is a declaration-free environment; it is only used for syntax checks
var parseEnv = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv()
})

// ExtractVariables parses a CEL expression and returns its free root identifiers, sorted
func ExtractVariables(expression string) ([]string, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidExpression)
	}

	env, err := parseEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	parsed, issues := env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidExpression, expression, issues.Err())
	}

	parsedExpr, err := cel.AstToParsedExpr(parsed)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidExpression, expression, err)
	}

	variables := make(map[string]bool)
	extractFromExpr(parsedExpr.GetExpr(), nil, variables)

	result := make([]string, 0, len(variables))
	for variable := range variables {
		result = append(result, variable)
	}

	slices.Sort(result)

	return result, nil
}

// extractFromExpr recursively collects identifiers not bound by an enclosing comprehension
func extractFromExpr(expr *exprpb.Expr, bound []string, variables map[string]bool) {
	if expr == nil {
		return
	}

	switch expr.GetExprKind().(type) {
	case *exprpb.Expr_IdentExpr:
		name := expr.GetIdentExpr().GetName()
		if !slices.Contains(bound, name) {
			variables[name] = true
		}

	case *exprpb.Expr_SelectExpr:
		// Member access (e.g., user.name) references the operand only
		extractFromExpr(expr.GetSelectExpr().GetOperand(), bound, variables)

	case *exprpb.Expr_CallExpr:
		call := expr.GetCallExpr()
		for _, arg := range call.GetArgs() {
			extractFromExpr(arg, bound, variables)
		}

		if call.GetTarget() != nil {
			extractFromExpr(call.GetTarget(), bound, variables)
		}

	case *exprpb.Expr_ListExpr:
		for _, elem := range expr.GetListExpr().GetElements() {
			extractFromExpr(elem, bound, variables)
		}

	case *exprpb.Expr_StructExpr:
		for _, entry := range expr.GetStructExpr().GetEntries() {
			if _, ok := entry.GetKeyKind().(*exprpb.Expr_CreateStruct_Entry_MapKey); ok {
				extractFromExpr(entry.GetMapKey(), bound, variables)
			}

			extractFromExpr(entry.GetValue(), bound, variables)
		}

	case *exprpb.Expr_ComprehensionExpr:
		comp := expr.GetComprehensionExpr()
		extractFromExpr(comp.GetIterRange(), bound, variables)
		extractFromExpr(comp.GetAccuInit(), bound, variables)

		inner := append(slices.Clone(bound), comp.GetIterVar(), comp.GetAccuVar())
		extractFromExpr(comp.GetLoopCondition(), inner, variables)
		extractFromExpr(comp.GetLoopStep(), inner, variables)
		extractFromExpr(comp.GetResult(), inner, variables)
	}
}

// translateExpression resolves nested tags in raw, validates the result and
// records every free identifier as a parameter of the unit
func translateExpression(tc *intermediate.TagContext, raw string) (string, error) {
	code, _, err := translateExpressionVars(tc, raw)
	return code, err
}

// translateExpressionVars is translateExpression that also returns the free identifiers
func translateExpressionVars(tc *intermediate.TagContext, raw string) (string, []string, error) {
	code, err := tc.TranslateNested(raw)
	if err != nil {
		return "", nil, err
	}

	code = strings.TrimSpace(code)

	variables, err := ExtractVariables(code)
	if err != nil {
		return "", nil, err
	}

	for _, v := range variables {
		tc.AddParameter(v)
	}

	return code, variables, nil
}
