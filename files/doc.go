// Package files gives the assistant full access to the file system: it can
// search for files by name, extension or content, read them with tolerant
// encoding fallbacks, write or append with automatic backups, and watch
// directory trees for changes.
package files
