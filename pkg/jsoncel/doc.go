// Package jsoncel implements a CEL
// Type Provider for JSON schema documents.
//
// Node types declare their properties as a JSON schema. The schema is
// used to type-check node validation rules, to source default property
// values when a node is created, and to report missing required properties.
package jsoncel
