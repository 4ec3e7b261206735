package main

import "github.com/lamitie/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
