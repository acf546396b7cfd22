// Package logging sets up structured slog logging for docsearch: JSON lines
// to a size-rotated file under the data directory, with an optional
// human-readable copy on stderr. It also reads those files back for the
// `docsearch logs` command.
package logging
