// Command tokenizer splits text files into one token per line.
//
// Each source gets a producer goroutine and each queue a consumer goroutine;
// producers hand lines (or bytes) to the bounded queues and consumers write
// every token on its own line.
//
// Usage:
//
//	tokenizer [flags]
//	tokenizer config [flags]
//	tokenizer version
//
// Examples:
//
//	# four producers over lorem_ipsum/0.txt .. 3.txt, tokens on stdout
//	tokenizer --dir lorem_ipsum --sources 4
//
//	# byte mode, one output file per consumer
//	tokenizer --mode byte --out-dir output
//
//	# every .txt under corpus/, metrics on :9090, JSON report
//	tokenizer --dir corpus --glob '**/*.txt' --metrics-addr :9090 --report run.json
//
// Configuration is layered: defaults, then --config file, then TOKENIZER_*
// environment variables, then flags. The process exits 1 if any producer or
// consumer failed or the configuration is invalid. SIGINT and SIGTERM stop the
// producers; consumers drain what is already queued before exiting.
package main
