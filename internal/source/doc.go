// Package source finds and opens tokenizer inputs.
//
// Discovery follows one of three layouts:
//
//   - Indexed: <dir>/0.txt .. <dir>/<n-1>.txt
//   - Glob: a doublestar pattern relative to dir, e.g. "**/*.txt"
//   - Walk: every file under dir with one of the given extensions
//
// Open reads a file sequentially and decompresses .gz (gzip) and .zst
// (zstd) inputs. The bytes that reach the caller are the file's bytes:
// nothing is transcoded, except UTF-16 text announced by a byte order mark,
// which line reads decode to UTF-8. Content with NUL bytes in its first
// block is rejected as binary. The detected MIME type and charset are
// recorded for reporting only. Lines are bounded by MaxItemSize; a longer
// line is an error rather than a silent truncation.
package source
