// Package util holds a case-insensitive, insertion-ordered name map used for
// pipeline names.
package util
