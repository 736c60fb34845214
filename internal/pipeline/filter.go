package pipeline

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Filter is a conjunction of optional membership constraints plus an
// optional CEL expression. An empty filter matches every row.
type Filter struct {
	Countries  []string `json:"countries,omitempty"`
	Categories []string `json:"categories,omitempty"`
	PeerGroups []string `json:"peerGroups,omitempty"`
	Areas      []string `json:"areas,omitempty"`

	// Expression is an advanced row predicate, e.g.
	// `volume > 100.0 && country != customer_country`. It must evaluate
	// to bool and is ANDed with the membership constraints.
	Expression string `json:"expression,omitempty"`
}

// rowMatcher decides whether a calc row survives the filter.
type rowMatcher func(row domain.CalcRow) (bool, error)

// newFilterEnv declares the CEL variables available to filter expressions.
func newFilterEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("country", cel.StringType),
		cel.Variable("customer", cel.StringType),
		cel.Variable("product", cel.StringType),
		cel.Variable("comparable", cel.StringType),
		cel.Variable("category", cel.StringType),
		cel.Variable("peer_group", cel.StringType),
		cel.Variable("area", cel.StringType),
		cel.Variable("volume", cel.DoubleType),
		cel.Variable("net_price", cel.DoubleType),
	)
}

// compileFilter turns a Filter into a matcher. CEL compile and type errors
// are returned to the caller, never swallowed.
func (p *Pipeline) compileFilter(f Filter) (rowMatcher, error) {
	countries := toSet(f.Countries)
	categories := toSet(f.Categories)
	peerGroups := toSet(f.PeerGroups)
	areas := toSet(f.Areas)

	var program cel.Program
	if f.Expression != "" {
		ast, issues := p.env.Compile(f.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("failed to compile filter expression: %w", issues.Err())
		}
		if ast.OutputType() != cel.BoolType {
			return nil, fmt.Errorf("filter expression must return bool, got %s", ast.OutputType())
		}

		var err error
		program, err = p.env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("failed to create filter program: %w", err)
		}
	}

	return func(row domain.CalcRow) (bool, error) {
		if !matchSet(countries, row.Country) ||
			!matchSet(categories, row.Category) ||
			!matchSet(peerGroups, row.PeerGroup) ||
			!matchSet(areas, row.Area) {
			return false, nil
		}

		if program == nil {
			return true, nil
		}

		out, _, err := program.Eval(map[string]any{
			"country":    row.Country,
			"customer":   row.Customer,
			"product":    row.Product,
			"comparable": row.Comparable,
			"category":   row.Category,
			"peer_group": row.PeerGroup,
			"area":       row.Area,
			"volume":     row.Volume,
			"net_price":  row.NetPrice,
		})
		if err != nil {
			return false, fmt.Errorf("filter expression evaluation: %w", err)
		}

		matched, ok := out.(types.Bool)
		if !ok {
			return false, fmt.Errorf("filter expression returned %T, want bool", out)
		}
		return bool(matched), nil
	}, nil
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// matchSet treats a nil set as "no constraint".
func matchSet(set map[string]struct{}, value string) bool {
	if set == nil {
		return true
	}
	_, ok := set[value]
	return ok
}
