// Package gitignore matches paths against the rules of .gitignore files
// found while walking a tree. Rules are scoped to the directory holding
// the file and translated to doublestar globs.
package gitignore
