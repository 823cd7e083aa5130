package main

import "github.com/estuarylabs/chemclean/cmd"

func main() {
	cmd.Execute()
}
