// Command kakashi generates instruction-following examples by driving an
// OpenAI-style text completion endpoint with few-shot prompts built from
// seed tasks.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
