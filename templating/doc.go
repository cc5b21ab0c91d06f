// Package templating validates and expands templates whose
// tokens are enclosed by a configurable prefix/suffix pair
// (a Style). Presets cover square braces ("[" "]"), Ant
// style ("${" "}"), expression style ("#[" "]") and curly
// braces ("{" "}"); NewStyle builds custom pairs.
//
// An Engine scans a template once, tracking delimiter
// nesting. IsValid and Validate report whether every token
// is closed; Parse, ParseSlice and ParseMap replace tokens
// found in a property mapping and leave unknown tokens
// untouched. Malformed spans are never an error for Parse:
// they are copied as literal text.
//
// The Expander type applies an Engine to template files,
// loading properties through the properties package.
package templating
