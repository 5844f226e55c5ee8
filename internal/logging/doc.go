// Package logging assembles the slog logger each magicscraper command runs with.
//
// Console lines go to the command's stderr, coloured only on a terminal, and
// every record is also appended as JSON to magicscraper.log in the configured
// log directory. The caller owns the returned closer and releases the file
// when the command ends. Context helpers tag lines with the run id and stage.
package logging
