// Package monorepo discovers the packages of a source tree. A package is
// any directory holding a package.json; packages form a tree following the
// directory structure, rooted at the repository's own package.json.
package monorepo
