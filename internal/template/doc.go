// Package template encodes and decodes histogram templates.
//
// A template container holds its metadata as root attributes, one float64
// bin-edge dataset per axis at bins/<index> carrying a "name" attribute,
// and one float64 dataset per histogram at templates/<name>.
package template
