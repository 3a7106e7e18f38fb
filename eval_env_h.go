package main

// / An interface for a scope for variable lookups.
type Env interface {
	LookupVariable(var1 string) string
}

// / An invocable build command and associated metadata (description, etc.).
type Rule struct {
	name_     string
	bindings_ map[string]string
}

// / An Env which contains a mapping of variables to values
// / as well as a pointer to a parent scope.
type BindingEnv struct {
	bindings_ map[string]string
	rules_    map[string]*Rule
	parent_   *BindingEnv
}
