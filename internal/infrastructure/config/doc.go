/*
Package config loads tokenizer configuration.

Values are layered, later layers winning: Default(), an optional YAML, TOML
or JSON file (ApplyFile), then TOKENIZER_* environment variables
(ApplyEnv). The command line applies its flags last.

Environment variables are named TOKENIZER_<SECTION>_<KEY>:

	TOKENIZER_INPUT_DIR=lorem_ipsum
	TOKENIZER_INPUT_SOURCES=4
	TOKENIZER_QUEUE_CAPACITY=256
	TOKENIZER_QUEUE_DRAIN_TIMEOUT=30s
	TOKENIZER_INPUT_MODE=byte
	TOKENIZER_OUTPUT_SEPARATOR=,
	TOKENIZER_LOG_LEVEL=debug
	TOKENIZER_SERVER_ADDR=:9090
*/
package config
