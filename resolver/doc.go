// Package resolver expands tokens inside multi-document YAML
// streams. Every string scalar, at any depth of mappings and
// sequences, is passed through a templating.Engine; mapping
// keys are left untouched. Documents are separated by "---"
// markers on output, as on input. ValidateDocuments reports
// malformed templates with the path of the offending scalar.
package resolver
