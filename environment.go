package liquid

import (
	"sync"
)

// Mode is the engine-wide error policy (spec.md §7).
type Mode int

const (
	ModeStrict Mode = iota
	ModeWarn
	ModeLax
)

// FilterFunction is the shape every registered filter implements (spec.md
// §4.6 / §6.5): receives the piped-in value, positional args, and keyword
// args, and returns a value or an error. Returning a *filterValueError
// (via NewFilterValueError) skips only this filter in the chain rather
// than aborting the whole output statement.
type FilterFunction func(left Value, args []Value, kwargs map[string]Value) (Value, error)

// NewFilterValueError builds the value-local filter error described in
// spec.md §4.6, for use by filter implementations that want to skip
// themselves on bad input without aborting the surrounding statement.
func NewFilterValueError(format string, args ...any) error {
	return newFilterValueError(format, args...)
}

// TagParser parses one tag occurrence. It is called with tok set to the
// tag's TAG_NAME token and the stream positioned just after it, and must
// consume the tag's own EXPRESSION token (if any); a block tag also
// consumes everything through its matching {% end... %}.
type TagParser func(p *Parser, tok *Token) (Node, error)

// tagDef pairs a tag's parser with the name of its closing tag. The end
// name is recorded only; the parser does not read it.
type tagDef struct {
	parse TagParser
	end   string // closing tag name, "" if the tag has no block
}

// Environment assembles the tag registry, filter registry, mode, loader
// and template cache into the compile entry point that produces bound
// Templates (spec.md §2's Environment component), grounded on the
// teacher's TemplateSet: a mutex-guarded registry plus
// cache shared across concurrent reads.
type Environment struct {
	Mode            Mode
	Undefined       UndefinedPolicy
	Autoescape      bool
	StrictFilters   bool
	Globals         map[string]Value
	Loader          Loader

	MaxContextDepth   int
	MaxLoopIterations int
	OutputStreamLimit int

	tagsMu sync.RWMutex
	tags   map[string]*tagDef

	filtersMu sync.RWMutex
	filters   map[string]FilterFunction

	cacheMu sync.Mutex
	cache   map[string]*Template

	initOnce sync.Once
}

// NewEnvironment builds an Environment with the default tag/filter
// registries, strict mode, lax undefined policy, and the supplied loader.
func NewEnvironment(loader Loader) *Environment {
	env := &Environment{
		Mode:              ModeStrict,
		Undefined:         PolicyLax,
		Loader:            loader,
		Globals:           make(map[string]Value),
		MaxContextDepth:   100,
		MaxLoopIterations: 1_000_000,
		OutputStreamLimit: 0,
		cache:             make(map[string]*Template),
	}
	env.initBuiltins()
	return env
}

func (env *Environment) initBuiltins() {
	env.initOnce.Do(func() {
		env.tagsMu.Lock()
		env.tags = make(map[string]*tagDef, len(builtinTags))
		for name, def := range builtinTags {
			env.tags[name] = def
		}
		env.tagsMu.Unlock()

		env.filtersMu.Lock()
		env.filters = make(map[string]FilterFunction, len(builtinFilters))
		for name, fn := range builtinFilters {
			env.filters[name] = fn
		}
		env.filtersMu.Unlock()
	})
}

// RegisterTag adds or overrides a tag in this environment's registry.
func (env *Environment) RegisterTag(name string, end string, parse TagParser) {
	env.tagsMu.Lock()
	defer env.tagsMu.Unlock()
	env.tags[name] = &tagDef{parse: parse, end: end}
}

func (env *Environment) lookupTag(name string) (*tagDef, bool) {
	env.tagsMu.RLock()
	defer env.tagsMu.RUnlock()
	d, ok := env.tags[name]
	return d, ok
}

// RegisterFilter adds or overrides a filter in this environment's registry.
func (env *Environment) RegisterFilter(name string, fn FilterFunction) {
	env.filtersMu.Lock()
	defer env.filtersMu.Unlock()
	env.filters[name] = fn
}

// FromString compiles src as an anonymous, in-memory template (no loader
// lookup), named "<string>" for error provenance.
func (env *Environment) FromString(src string) (*Template, error) {
	return env.compile("<string>", src)
}

// FromFile loads and compiles a template by name via the environment's
// Loader, caching the compiled result for subsequent lookups.
func (env *Environment) FromFile(name string) (*Template, error) {
	env.cacheMu.Lock()
	if t, ok := env.cache[name]; ok {
		env.cacheMu.Unlock()
		return t, nil
	}
	env.cacheMu.Unlock()

	if env.Loader == nil {
		return nil, errorf(KindTemplateNotFound, "environment", "no loader configured").At(name, 0, 0, nil)
	}
	src, err := env.Loader.Load(name)
	if err != nil {
		return nil, err
	}
	tpl, err := env.compile(name, src)
	if err != nil {
		return nil, err
	}

	env.cacheMu.Lock()
	env.cache[name] = tpl
	env.cacheMu.Unlock()
	return tpl, nil
}

func (env *Environment) compile(name, src string) (*Template, error) {
	logf("compiling template %q", name)
	tokens, err := lex(name, src)
	if err != nil {
		return nil, err
	}
	p := newParser(env, name, tokens)
	tree, err := p.parseTree()
	if err != nil {
		return nil, err
	}
	return &Template{env: env, name: name, tree: tree}, nil
}
