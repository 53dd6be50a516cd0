// Command reactions finds and summarizes how the web, Reddit and X reacted
// to an article or topic.
//
// Usage:
//
//	reactions serve              Run the HTTP API
//	reactions aggregate <query>  Run one aggregation and print it
//	reactions sweep              Remove expired cache entries once
//	reactions events             JSONL event log viewer
//	reactions version            Print version information
package main

func main() {
	Execute()
}
