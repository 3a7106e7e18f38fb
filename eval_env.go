package main

func NewRule(name string) *Rule {
	ret := Rule{}
	ret.name_ = name
	ret.bindings_ = make(map[string]string)
	return &ret
}

func (this *Rule) name() string {
	return this.name_
}

func (this *Rule) AddBinding(key, val string) {
	this.bindings_[key] = val
}

func (this *Rule) GetBinding(key string) string {
	return this.bindings_[key]
}

func NewBindingEnv(parent *BindingEnv) *BindingEnv {
	ret := BindingEnv{}
	ret.bindings_ = make(map[string]string)
	ret.rules_ = make(map[string]*Rule)
	ret.parent_ = parent
	return &ret
}

func (this *BindingEnv) LookupVariable(var1 string) string {
	if val, ok := this.bindings_[var1]; ok {
		return val
	}
	if this.parent_ != nil {
		return this.parent_.LookupVariable(var1)
	}
	return ""
}

func (this *BindingEnv) AddBinding(key, val string) {
	this.bindings_[key] = val
}

func (this *BindingEnv) AddRule(rule *Rule) {
	this.rules_[rule.name()] = rule
}

func (this *BindingEnv) LookupRule(rule_name string) *Rule {
	if rule, ok := this.rules_[rule_name]; ok {
		return rule
	}
	if this.parent_ != nil {
		return this.parent_.LookupRule(rule_name)
	}
	return nil
}
