// Command divtrack tracks dividend stocks, scores their safety and runs
// strategy backtests over Yahoo Finance market data.
package main

import "divtrack/internal/cli"

func main() {
	cli.Execute()
}
