// Package properties builds the name to value mappings that
// templating engines substitute into templates. Sources are
// workspace status files ("KEY VALUE" lines), YAML and JSON
// property files flattened to dotted keys, environment
// variables and NAME=VALUE assignments whose values may
// reference already loaded properties with {KEY} tags.
package properties
