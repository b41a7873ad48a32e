package main

import "zadapt/cmd"

func main() {
	cmd.Execute()
}
