package main

import "estateflow/cmd/api/cmd"

func main() {
	cmd.Execute()
}
