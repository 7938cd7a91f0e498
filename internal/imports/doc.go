// Package imports finds the module specifiers of JavaScript and
// TypeScript files and rewrites them in place.
//
// The scanner is lexical: it tokenizes the file well enough to tell code
// from comments, strings, template literals and regular expressions, then
// matches the token shapes of import and export declarations, import()
// and require() calls and TypeScript's import-equals form. Anything it
// cannot attribute to a static string is reported as a warning.
package imports
