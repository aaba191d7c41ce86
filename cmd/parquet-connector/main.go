package main

import "github.com/fraugster/parquet-connector/cmd/parquet-connector/cmds"

func main() {
	cmds.Execute()
}
