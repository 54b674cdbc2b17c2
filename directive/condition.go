package directive

import (
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// conditionEnv is the evaluation environment exposed to a compiled
// condition program: the model name the client requested plus the helper
// function a condition can call.
type conditionEnv struct {
	Model string
}

func (e conditionEnv) ModelContains(substring string) bool {
	return strings.Contains(e.Model, substring)
}

var (
	programCacheMu sync.Mutex
	programCache   = map[string]*vm.Program{}
)

// evaluateCondition runs a tiny expr-lang program for the condition. The
// program is compiled once and cached; the substring to look for is passed
// in the environment on each run. Routing the single existing
// condition kind (modelContains) through a compiled expression — rather than
// a hand-rolled switch — means a second condition kind is a new program
// template, not a new evaluator.
func evaluateCondition(model string, cond Condition) bool {
	program, err := compiledModelContains()
	if err != nil {
		return false
	}
	out, err := expr.Run(program, conditionEnv{Model: model}.withNeedle(cond.ModelContains))
	if err != nil {
		return false
	}
	matched, _ := out.(bool)
	return matched
}

// withNeedle adapts the cached program's fixed environment shape to carry
// the per-rule substring alongside the model.
func (e conditionEnv) withNeedle(needle string) map[string]any {
	return map[string]any{
		"Model":         e.Model,
		"needle":        needle,
		"ModelContains": e.ModelContains,
	}
}

func compiledModelContains() (*vm.Program, error) {
	const src = "ModelContains(needle)"
	programCacheMu.Lock()
	defer programCacheMu.Unlock()
	if p, ok := programCache[src]; ok {
		return p, nil
	}
	p, err := expr.Compile(src, expr.Env(map[string]any{
		"Model":         "",
		"needle":        "",
		"ModelContains": func(string) bool { return false },
	}))
	if err != nil {
		return nil, err
	}
	programCache[src] = p
	return p, nil
}
