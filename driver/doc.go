// Package driver opens the embedded SQLite engine used by csvsql and
// installs the regexp and regexf SQL functions.
package driver
