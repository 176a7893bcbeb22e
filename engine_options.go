package overlay

// engineOptions is what the built-in engines share.
type engineOptions struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

func (o *engineOptions) useRegistry(registry *FunctionRegistry) {
	if registry == nil {
		return
	}
	o.registry = registry.Clone()
}

// JSEvaluatorOption configures the JS evaluator.
type JSEvaluatorOption func(*engineOptions)

// JSWithProgramCache applies a ProgramCache to the JS evaluator.
func JSWithProgramCache(cache ProgramCache) JSEvaluatorOption {
	return func(o *engineOptions) {
		o.cache = cache
	}
}

// JSWithFunctionRegistry applies a FunctionRegistry to the JS evaluator.
func JSWithFunctionRegistry(registry *FunctionRegistry) JSEvaluatorOption {
	return func(o *engineOptions) {
		o.useRegistry(registry)
	}
}

// cachedProgram returns the program stored under key, compiling and storing
// it on a miss. A nil cache compiles every time.
func cachedProgram[P any](cache ProgramCache, key string, compile func() (P, error)) (P, error) {
	if cache != nil {
		if cached, ok := cache.Get(key); ok {
			if program, ok := cached.(P); ok {
				return program, nil
			}
		}
	}
	program, err := compile()
	if err != nil {
		return program, err
	}
	if cache != nil {
		cache.Set(key, program)
	}
	return program, nil
}
