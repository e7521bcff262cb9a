package liquid

// builtinTags is the default tag registry copied into every new
// Environment, grounded on the teacher's builtinTags map
// (RegisterTag/mustRegisterTag) and populated by each tags_*.go file's
// init().
var builtinTags = map[string]*tagDef{}

// registerBuiltinTag is called from each tags_*.go file's init() to add
// itself to the default registry (grounded on the teacher's
// registerTagBuiltin convention).
func registerBuiltinTag(name, end string, parse TagParser) {
	builtinTags[name] = &tagDef{parse: parse, end: end}
}
