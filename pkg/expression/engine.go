package expression

import (
	"fmt"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Engine is a wrapper around expr-lang/expr with program caching.
// It evaluates meter-based PM trigger conditions such as
// "runtime_hours >= 500" against an asset's latest meter readings.
type Engine struct {
	programCache map[string]*vm.Program
	mu           sync.RWMutex
}

// NewEngine creates a new expression engine
func NewEngine() *Engine {
	return &Engine{
		programCache: make(map[string]*vm.Program),
	}
}

// Evaluate compiles (if needed) and runs an expression against the given environment
func (e *Engine) Evaluate(expression string, env map[string]interface{}) (interface{}, error) {
	program, err := e.getProgram(expression, env)
	if err != nil {
		return nil, err
	}

	return expr.Run(program, env)
}

// EvaluateCondition evaluates an expression expected to yield a boolean
func (e *Engine) EvaluateCondition(expression string, env map[string]interface{}) (bool, error) {
	result, err := e.Evaluate(expression, env)
	if err != nil {
		return false, err
	}

	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("expression %q did not evaluate to a boolean (got %T)", expression, result)
	}
	return b, nil
}

// Validate compiles an expression without running it
func (e *Engine) Validate(expression string) error {
	_, err := expr.Compile(expression, standardOptions(nil)...)
	return err
}

func (e *Engine) getProgram(expression string, env map[string]interface{}) (*vm.Program, error) {
	e.mu.RLock()
	if prog, ok := e.programCache[expression]; ok {
		e.mu.RUnlock()
		return prog, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	// Double check
	if prog, ok := e.programCache[expression]; ok {
		return prog, nil
	}

	program, err := expr.Compile(expression, standardOptions(env)...)
	if err != nil {
		return nil, fmt.Errorf("failed to compile expression %q: %w", expression, err)
	}

	e.programCache[expression] = program
	return program, nil
}

func standardOptions(env map[string]interface{}) []expr.Option {
	options := []expr.Option{
		expr.AllowUndefinedVariables(),
		expr.Function("TODAY", func(params ...interface{}) (interface{}, error) {
			return time.Now().Format("2006-01-02"), nil
		}),
		expr.Function("NOW", func(params ...interface{}) (interface{}, error) {
			return time.Now().Format("2006-01-02 15:04:05"), nil
		}),
		expr.Function("DAYS_SINCE", func(params ...interface{}) (interface{}, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("DAYS_SINCE expects 1 parameter")
			}
			s, ok := params[0].(string)
			if !ok {
				return nil, fmt.Errorf("DAYS_SINCE expects a date string")
			}
			t, err := time.Parse("2006-01-02", s)
			if err != nil {
				return nil, err
			}
			return int(time.Since(t).Hours() / 24), nil
		}),
	}
	if env != nil {
		options = append(options, expr.Env(env))
	}
	return options
}
