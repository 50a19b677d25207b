// Package codec maps coordinate keys onto store paths. Each coordinate is
// rendered as a fixed-precision decimal string; all but the last become
// directory names and the last becomes a leaf file name carrying LeafSuffix.
//
// Stringify output only ever contains ASCII digits, '-' and a single '.', so
// it can never contain the path separator or the LeafSuffix sequence. Keys
// with NaN or infinite coordinates are rejected because their renderings fall
// outside that alphabet.
package codec
