package main

import "github.com/yapweijun1996/AI-Code-Editor-v13/cmd"

func main() {
	cmd.Execute()
}
