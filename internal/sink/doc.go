/*
Package sink holds the output side of the tokenizer.

Line mode shares one Console among all consumers; each record is written
under a lock so output from different consumers never interleaves within a
record. Byte mode gives every consumer its own File at <dir>/<index>.txt,
truncated when the consumer starts.
*/
package sink
