package main

import "github.com/KaramelBytes/regdiag-cli/cmd"

func main() {
	cmd.Execute()
}
